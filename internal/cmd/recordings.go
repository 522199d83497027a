package cmd

import (
	"github.com/spf13/cobra"
)

import (
	"github.com/nanjiek/meetingkit/api"
)

var (
	recordingsPageSize  string
	recordingsPageToken string
	recordingsTrash     string
	recordingsTrashType string
	recordingsFrom      string
	recordingsTo        string
)

var recordingsCmd = &cobra.Command{
	Use:   "recordings",
	Short: "Call cloud recording endpoints",
}

var recordingsListCmd = &cobra.Command{
	Use:   "list USER_ID",
	Short: "List a user's cloud recordings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := api.ListUserRecordingsOptions{
			UserID:        args[0],
			NextPageToken: recordingsPageToken,
			SearchTrash:   api.ParseFlag(recordingsTrash),
			TrashType:     recordingsTrashType,
			StartDate:     recordingsFrom,
			EndDate:       recordingsTo,
		}
		if recordingsPageSize != "" {
			n, err := api.SanitizeInt(recordingsPageSize)
			if err != nil {
				return err
			}
			opts.PageSize = n
		}

		c, _, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		recs, err := c.CloudRecordings().ListUserRecordings(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

var recordingsMeetingCmd = &cobra.Command{
	Use:   "meeting MEETING_ID",
	Short: "List the recordings of one meeting (id or uuid)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		recs, err := c.CloudRecordings().ListMeetingRecordings(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

func init() {
	f := recordingsListCmd.Flags()
	f.StringVar(&recordingsPageSize, "page-size", "", "results per page, 1..299")
	f.StringVar(&recordingsPageToken, "page-token", "", "next page token from a previous call")
	f.StringVar(&recordingsTrash, "trash", "false", "list recordings in the trash (true/false/1/0)")
	f.StringVar(&recordingsTrashType, "trash-type", "", "meeting_recordings or recording_file")
	f.StringVar(&recordingsFrom, "from", "", "start date, yyyy-mm-dd (defaults to six months ago)")
	f.StringVar(&recordingsTo, "to", "", "end date, yyyy-mm-dd")

	recordingsCmd.AddCommand(recordingsListCmd)
	recordingsCmd.AddCommand(recordingsMeetingCmd)
	rootCmd.AddCommand(recordingsCmd)
}
