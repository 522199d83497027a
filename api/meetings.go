package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/errmap"
)

const (
	pathMeeting       = "/meetings/{meetingId}"
	pathUserMeetings  = "/users/{userId}/meetings"
	pathPastInstances = "/past_meetings/{meetingId}/instances"

	// provider code for an alternative host that is not on the account
	codeInvalidAltHost = 1114
)

// Meetings implements the /meetings endpoints.
type Meetings struct {
	sender Sender
}

func NewMeetings(sender Sender) *Meetings {
	return &Meetings{sender: sender}
}

type GetMeetingOptions struct {
	MeetingID          string
	OccurrenceID       string
	ShowAllOccurrences bool
}

func (c *Meetings) Get(ctx context.Context, opts GetMeetingOptions) (*Meeting, error) {
	if err := required(apierr.CodeInvalidMeetingID, "Meeting ID", opts.MeetingID); err != nil {
		return nil, err
	}
	params := map[string]any{
		"show_previous_occurrences": opts.ShowAllOccurrences,
	}
	if opts.OccurrenceID != "" {
		params["occurrence_id"] = opts.OccurrenceID
	}

	res, err := c.sender.Send(ctx, meetingDescriptor(http.MethodGet, pathMeeting, opts.MeetingID, params, errmap.ErrorMap{
		400: errmap.ByCode(map[int]string{
			1010: "The user could not be found on this account",
			3000: "We could not access webinar info",
		}),
		404: errmap.ByCode(map[int]string{
			1001: "We could not find the meeting because the user does not exist",
			3001: fmt.Sprintf("Meeting %s could not be found or has expired", opts.MeetingID),
		}),
	}))
	if err != nil {
		return nil, err
	}
	var m Meeting
	if err := decode(res, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

type CreateMeetingOptions struct {
	UserID  string
	Meeting *Meeting
}

func (c *Meetings) Create(ctx context.Context, opts CreateMeetingOptions) (*Meeting, error) {
	if err := required(apierr.CodeInvalidUserID, "User ID", opts.UserID); err != nil {
		return nil, err
	}
	if opts.Meeting == nil {
		return nil, &apierr.ValidationError{Code: apierr.CodeMissingParameter, Message: "meeting details are a required parameter"}
	}
	params, err := toParams(opts.Meeting)
	if err != nil {
		return nil, fmt.Errorf("encode meeting: %w", err)
	}

	res, err := c.sender.Send(ctx, dispatchDescriptor(
		http.MethodPost,
		fillPath(pathUserMeetings, "userId", url.PathEscape(opts.UserID)),
		params,
		errmap.ErrorMap{
			300: errmap.Literal(fmt.Sprintf("User %s has reached the maximum limit for creating and updating meetings", opts.UserID)),
			404: errmap.ByCode(map[int]string{
				1001: fmt.Sprintf("User %s either does not exist or does not belong to this account", opts.UserID),
			}),
		},
	))
	if err != nil {
		return nil, err
	}
	var m Meeting
	if err := decode(res, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

type UpdateMeetingOptions struct {
	MeetingID    string
	Meeting      *Meeting
	OccurrenceID string
}

func (c *Meetings) Update(ctx context.Context, opts UpdateMeetingOptions) error {
	if err := required(apierr.CodeInvalidMeetingID, "Meeting ID", opts.MeetingID); err != nil {
		return err
	}
	if opts.Meeting == nil {
		return &apierr.ValidationError{Code: apierr.CodeMissingParameter, Message: "meeting details are a required parameter"}
	}
	params, err := toParams(opts.Meeting)
	if err != nil {
		return fmt.Errorf("encode meeting: %w", err)
	}

	path := fillPath(pathMeeting, "meetingId", url.PathEscape(opts.MeetingID))
	if opts.OccurrenceID != "" {
		path += "?occurrence_id=" + url.QueryEscape(opts.OccurrenceID)
	}
	_, err = c.sender.Send(ctx, dispatchDescriptor(http.MethodPatch, path, params, errmap.ErrorMap{
		300: errmap.Literal("We cannot create or update any more meetings today. Please try again tomorrow"),
		400: errmap.ByCode(map[int]string{
			1010: "We could not find the user on this account",
			3000: "We could not access meeting information",
			3003: fmt.Sprintf("You cannot update the meeting %s since you are not the meeting host", opts.MeetingID),
		}),
		404: errmap.ByCode(map[int]string{
			1001: "We could not update the meeting because the user does not exist",
			3001: fmt.Sprintf("A meeting with the ID %s could not be found or has expired", opts.MeetingID),
		}),
	}))
	return err
}

type DeleteMeetingOptions struct {
	MeetingID    string
	OccurrenceID string
	NotifyHosts  bool
}

func (c *Meetings) Delete(ctx context.Context, opts DeleteMeetingOptions) error {
	if err := required(apierr.CodeInvalidMeetingID, "Meeting ID", opts.MeetingID); err != nil {
		return err
	}
	params := map[string]any{
		"schedule_for_reminder": opts.NotifyHosts,
	}
	if opts.OccurrenceID != "" {
		params["occurrence_id"] = opts.OccurrenceID
	}

	id := opts.MeetingID
	_, err := c.sender.Send(ctx, meetingDescriptor(http.MethodDelete, pathMeeting, id, params, errmap.ErrorMap{
		400: errmap.ByCode(map[int]string{
			1010: fmt.Sprintf("We could not delete meeting %s because the user does not belong to this account", id),
			3000: fmt.Sprintf("We could not access meeting information for meeting %s", id),
			3002: fmt.Sprintf("We could not delete the meeting %s since it is still in progress", id),
			3003: fmt.Sprintf("You cannot delete the meeting %s since you are not the meeting host", id),
			3007: fmt.Sprintf("You cannot delete the meeting %s since it has already ended", id),
			3018: "You are not allowed to delete your Personal Meeting ID",
			3037: "You are not allowed to delete a Personal Meeting Conference",
		}),
		404: errmap.ByCode(map[int]string{
			1001: fmt.Sprintf("We could not delete the meeting %s because the user does not exist", id),
			3001: fmt.Sprintf("A meeting with the ID %s could not be found or has expired", id),
		}),
	}))
	return err
}

// ListPastInstances lists the ended occurrences of a meeting.
func (c *Meetings) ListPastInstances(ctx context.Context, meetingID string) ([]PastInstance, error) {
	if err := required(apierr.CodeInvalidMeetingID, "Meeting ID", meetingID); err != nil {
		return nil, err
	}
	res, err := c.sender.Send(ctx, meetingDescriptor(http.MethodGet, pathPastInstances, meetingID, nil, errmap.ErrorMap{
		404: errmap.Literal(fmt.Sprintf("We could not find a meeting with the ID %s", meetingID)),
	}))
	if err != nil {
		return nil, err
	}
	var body struct {
		Meetings []PastInstance `json:"meetings"`
	}
	if err := decode(res, &body); err != nil {
		return nil, err
	}
	return body.Meetings, nil
}

// AddAltHosts adds every host that is not already an alternative host of
// the meeting. The result holds one status per requested host, in order.
// Hosts the provider does not know get AltHostNoUser; any other failure is
// returned as an error.
func (c *Meetings) AddAltHosts(ctx context.Context, meetingID string, hosts []string) ([]AltHostStatus, error) {
	if err := required(apierr.CodeInvalidMeetingID, "Meeting ID", meetingID); err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, &apierr.ValidationError{Code: apierr.CodeMissingParameter, Message: "at least one alternative host is required"}
	}
	for i, h := range hosts {
		if strings.TrimSpace(h) == "" {
			return nil, &apierr.ValidationError{Code: apierr.CodeMissingParameter, Message: fmt.Sprintf("alternative host %d is empty", i)}
		}
	}

	m, err := c.Get(ctx, GetMeetingOptions{MeetingID: meetingID})
	if err != nil {
		return nil, err
	}
	var current []string
	if m.Settings != nil {
		current = splitHosts(m.Settings.AlternativeHosts)
	}

	statuses := make([]AltHostStatus, len(hosts))
	first := make(map[string]int, len(hosts))
	var pending []string
	for i, h := range hosts {
		h = strings.TrimSpace(h)
		key := strings.ToLower(h)
		if _, seen := first[key]; seen {
			continue
		}
		first[key] = i
		if containsHost(current, h) {
			statuses[i] = AltHostSuccess
			continue
		}
		pending = append(pending, h)
	}
	fill := func() []AltHostStatus {
		for i, h := range hosts {
			statuses[i] = statuses[first[strings.ToLower(strings.TrimSpace(h))]]
		}
		return statuses
	}
	if len(pending) == 0 {
		return fill(), nil
	}

	err = c.setAltHosts(ctx, meetingID, append(append([]string(nil), current...), pending...))
	switch {
	case err == nil:
		for _, h := range pending {
			statuses[first[strings.ToLower(h)]] = AltHostSuccess
		}
		return fill(), nil
	case !isUnknownHost(err):
		return nil, err
	case len(pending) == 1:
		statuses[first[strings.ToLower(pending[0])]] = AltHostNoUser
		return fill(), nil
	}

	// At least one host is unknown: add them one at a time to find out which.
	for _, h := range pending {
		err := c.setAltHosts(ctx, meetingID, append(append([]string(nil), current...), h))
		switch {
		case err == nil:
			current = append(current, h)
			statuses[first[strings.ToLower(h)]] = AltHostSuccess
		case isUnknownHost(err):
			statuses[first[strings.ToLower(h)]] = AltHostNoUser
		default:
			return nil, err
		}
	}
	return fill(), nil
}

// AddAltHost adds a single alternative host.
func (c *Meetings) AddAltHost(ctx context.Context, meetingID, host string) (AltHostStatus, error) {
	statuses, err := c.AddAltHosts(ctx, meetingID, []string{host})
	if err != nil {
		return "", err
	}
	return statuses[0], nil
}

func (c *Meetings) setAltHosts(ctx context.Context, meetingID string, hosts []string) error {
	return c.Update(ctx, UpdateMeetingOptions{
		MeetingID: meetingID,
		Meeting:   &Meeting{Settings: &MeetingSettings{AlternativeHosts: strings.Join(hosts, ";")}},
	})
}

func isUnknownHost(err error) bool {
	var te *apierr.TranslatedError
	return errors.As(err, &te) && te.Status == http.StatusBadRequest && te.Code == codeInvalidAltHost
}

func splitHosts(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func containsHost(list []string, h string) bool {
	for _, x := range list {
		if strings.EqualFold(x, h) {
			return true
		}
	}
	return false
}

func meetingDescriptor(method, template, meetingID string, params map[string]any, em errmap.ErrorMap) dispatch.Descriptor {
	return dispatchDescriptor(method, fillPath(template, "meetingId", url.PathEscape(meetingID)), params, em)
}
