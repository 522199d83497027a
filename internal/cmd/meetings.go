package cmd

import (
	"github.com/spf13/cobra"
)

import (
	"github.com/nanjiek/meetingkit/api"
)

var (
	meetingOccurrence string
	meetingAll        string
	meetingAltHosts   []string
)

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "Call meeting endpoints",
}

var meetingsGetCmd = &cobra.Command{
	Use:   "get MEETING_ID",
	Short: "Fetch a meeting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		m, err := c.Meetings().Get(cmd.Context(), api.GetMeetingOptions{
			MeetingID:          args[0],
			OccurrenceID:       meetingOccurrence,
			ShowAllOccurrences: api.ParseFlag(meetingAll),
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), m)
	},
}

var meetingsAltHostsCmd = &cobra.Command{
	Use:   "add-alt-hosts MEETING_ID",
	Short: "Add alternative hosts to a meeting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		statuses, err := c.Meetings().AddAltHosts(cmd.Context(), args[0], meetingAltHosts)
		if err != nil {
			return err
		}
		out := make(map[string]api.AltHostStatus, len(statuses))
		for i, s := range statuses {
			out[meetingAltHosts[i]] = s
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	meetingsGetCmd.Flags().StringVar(&meetingOccurrence, "occurrence", "", "occurrence id")
	meetingsGetCmd.Flags().StringVar(&meetingAll, "all-occurrences", "false", "include previous occurrences (true/false/1/0)")
	meetingsAltHostsCmd.Flags().StringSliceVar(&meetingAltHosts, "host", nil, "alternative host email, repeatable")
	_ = meetingsAltHostsCmd.MarkFlagRequired("host")

	meetingsCmd.AddCommand(meetingsGetCmd)
	meetingsCmd.AddCommand(meetingsAltHostsCmd)
	rootCmd.AddCommand(meetingsCmd)
}
