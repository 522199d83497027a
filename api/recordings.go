package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

import (
	"github.com/tilinna/clock"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/errmap"
	"github.com/nanjiek/meetingkit/transport"
)

const (
	pathMeetingRecordings = "/meetings/{meetingId}/recordings"
	pathUserRecordings    = "/users/{userId}/recordings"

	DefaultRecordingPageSize = 300

	TrashMeetingRecordings = "meeting_recordings"
	TrashRecordingFile     = "recording_file"
)

// CloudRecordings implements the cloud recording endpoints.
type CloudRecordings struct {
	sender Sender
	clock  clock.Clock
}

func NewCloudRecordings(sender Sender, c clock.Clock) *CloudRecordings {
	if c == nil {
		c = clock.Realtime()
	}
	return &CloudRecordings{sender: sender, clock: c}
}

// MeetingRecordings is the reply of ListMeetingRecordings.
type MeetingRecordings struct {
	Recording
	DownloadAccessToken string `json:"download_access_token,omitempty"`
}

// ListMeetingRecordings fetches every recording of a meeting. meetingID may
// be a numeric id or a UUID.
func (c *CloudRecordings) ListMeetingRecordings(ctx context.Context, meetingID string) (*MeetingRecordings, error) {
	if err := required(apierr.CodeInvalidMeetingID, "Meeting ID", meetingID); err != nil {
		return nil, err
	}
	res, err := c.sender.Send(ctx, dispatchDescriptor(
		http.MethodGet,
		fillPath(pathMeetingRecordings, "meetingId", DoubleEncodeIfNeeded(meetingID)),
		nil,
		errmap.ErrorMap{
			400: errmap.ByCode(map[int]string{
				1010: "We could not find the user on this account",
			}),
			404: errmap.ByCode(map[int]string{
				1001: "We could not find that user",
				3301: fmt.Sprintf("There are no recordings for the meeting %s", meetingID),
			}),
		},
	))
	if err != nil {
		return nil, err
	}
	var out MeetingRecordings
	if err := decode(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ListUserRecordingsOptions struct {
	UserID string
	// PageSize defaults to 300 when zero; otherwise it must be 1..299.
	PageSize      int
	NextPageToken string
	SearchTrash   bool
	// TrashType is TrashMeetingRecordings or TrashRecordingFile.
	TrashType string
	// StartDate and EndDate are yyyy-mm-dd style dates, see ParseDate.
	// StartDate defaults to six months ago.
	StartDate string
	EndDate   string
}

// ListUserRecordings lists a user's cloud recordings.
func (c *CloudRecordings) ListUserRecordings(ctx context.Context, opts ListUserRecordingsOptions) ([]Recording, error) {
	params, err := c.userRecordingParams(opts)
	if err != nil {
		return nil, err
	}

	desc := dispatchDescriptor(
		http.MethodGet,
		fillPath(pathUserRecordings, "userId", url.PathEscape(opts.UserID)),
		params,
		errmap.ErrorMap{
			404: errmap.ByCode(map[int]string{
				1001: fmt.Sprintf("We could not find the user %s on this account", opts.UserID),
			}),
		},
	)
	desc.PostProcess = extractMeetings

	res, err := c.sender.Send(ctx, desc)
	if err != nil {
		return nil, err
	}
	var out []Recording
	if err := decode(res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CloudRecordings) userRecordingParams(opts ListUserRecordingsOptions) (map[string]any, error) {
	if err := required(apierr.CodeInvalidUserID, "User ID", opts.UserID); err != nil {
		return nil, err
	}

	params := map[string]any{
		"page_size": DefaultRecordingPageSize,
		"trash":     opts.SearchTrash,
		"from":      FormatDate(c.clock.Now().AddDate(0, -6, 0)),
	}

	if opts.PageSize != 0 {
		if opts.PageSize < 0 {
			return nil, &apierr.ValidationError{
				Code:    apierr.CodeInvalidPageSize,
				Message: "We encountered an error with the page size value while trying to retrieve user recordings",
			}
		}
		if opts.PageSize >= DefaultRecordingPageSize {
			return nil, &apierr.ValidationError{
				Code:    apierr.CodeInvalidPageSize,
				Message: fmt.Sprintf("We requested %d recordings but the provider can only give us %d at a time", opts.PageSize, DefaultRecordingPageSize),
			}
		}
		params["page_size"] = opts.PageSize
	}

	if opts.StartDate != "" {
		t, err := ParseDate(opts.StartDate, "Start")
		if err != nil {
			return nil, err
		}
		params["from"] = FormatDate(t)
	}
	if opts.EndDate != "" {
		t, err := ParseDate(opts.EndDate, "End")
		if err != nil {
			return nil, err
		}
		params["to"] = FormatDate(t)
	}

	if opts.TrashType != "" {
		if opts.TrashType != TrashMeetingRecordings && opts.TrashType != TrashRecordingFile {
			return nil, &apierr.ValidationError{
				Code:    apierr.CodeInvalidTrashType,
				Message: fmt.Sprintf("trash type %q must be %s or %s", opts.TrashType, TrashMeetingRecordings, TrashRecordingFile),
			}
		}
		params["trash_type"] = opts.TrashType
	}
	if opts.NextPageToken != "" {
		params["next_page_token"] = opts.NextPageToken
	}
	return params, nil
}

// extractMeetings replaces the response body with its "meetings" array.
func extractMeetings(res *transport.Response) (*transport.Response, error) {
	var doc struct {
		Meetings json.RawMessage `json:"meetings"`
	}
	if err := json.Unmarshal(res.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode recordings: %w", err)
	}
	out := *res
	out.Body = doc.Meetings
	if len(out.Body) == 0 {
		out.Body = []byte("[]")
	}
	return &out, nil
}
