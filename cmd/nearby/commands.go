package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		lat, lon     float64
		address      string
		term         string
		facilityType string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search facilities around a point, an address or the default place",
		Example: `  nearby search --lat 20.2961 --lon 85.8245 --q dentist
  nearby search --address "Puri, Odisha" --type public
  nearby search --provider mock --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := services.ParseFacilityType(facilityType)
			if err != nil {
				return err
			}
			latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
			if latSet != lonSet {
				return fmt.Errorf("--lat and --lon must be given together")
			}

			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}

			req := services.SearchRequest{Address: address, Term: term, FacilityType: ft}
			if latSet {
				req.Center = &geo.Coordinate{Latitude: lat, Longitude: lon}
			}

			outcome, err := p.searcher.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), outcome)
			}
			return writeOutcome(cmd.OutOrStdout(), outcome)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of the search center")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude of the search center")
	cmd.Flags().StringVar(&address, "address", "", "free-text location to search around")
	cmd.Flags().StringVarP(&term, "q", "q", "", "what to look for, e.g. \"eye hospital\"")
	cmd.Flags().StringVar(&facilityType, "type", "all", "facility type: all, public, private, clinic, medical")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full outcome as JSON")
	cmd.MarkFlagsMutuallyExclusive("address", "lat")
	return cmd
}

func newGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <address>",
		Short: "Resolve an address to coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			resolved, err := p.geolocator.ResolveAddress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", resolved.Coordinate, resolved.Address)
			return nil
		},
	}
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "Print the configured search strategy plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tNAME\tSCOPE\tRADIUS(m)\tLIMIT\tUSES TERM")
			for i, s := range p.dispatcher.Strategies() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%t\n", i, s.Name, s.Scope, s.RadiusMeters, s.Limit, s.UseTerm)
			}
			return tw.Flush()
		},
	}
}

func writeOutcome(w io.Writer, outcome *services.SearchOutcome) error {
	fmt.Fprintf(w, "Center %s (%s)\n", outcome.Center, outcome.CenterSource)
	if len(outcome.Results) == 0 {
		fmt.Fprintln(w, "No healthcare facilities found nearby.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tDISTANCE\tADDRESS\tMAP")
	for i, r := range outcome.Results {
		fmt.Fprintf(tw, "%d\t%s\t%.2f km\t%s\t%s\n", i+1, r.Name, r.DistanceKm, r.Address, r.MapLink)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
