package api

// Meeting is the provider's meeting object. Only the fields meetingkit reads
// or writes are typed; create and update send whatever is set.
type Meeting struct {
	ID        int64            `json:"id,omitempty"`
	UUID      string           `json:"uuid,omitempty"`
	HostID    string           `json:"host_id,omitempty"`
	HostEmail string           `json:"host_email,omitempty"`
	Topic     string           `json:"topic,omitempty"`
	Type      int              `json:"type,omitempty"`
	Status    string           `json:"status,omitempty"`
	StartTime string           `json:"start_time,omitempty"`
	Duration  int              `json:"duration,omitempty"`
	Timezone  string           `json:"timezone,omitempty"`
	Agenda    string           `json:"agenda,omitempty"`
	Password  string           `json:"password,omitempty"`
	JoinURL   string           `json:"join_url,omitempty"`
	StartURL  string           `json:"start_url,omitempty"`
	CreatedAt string           `json:"created_at,omitempty"`
	Settings  *MeetingSettings `json:"settings,omitempty"`
}

type MeetingSettings struct {
	HostVideo        *bool  `json:"host_video,omitempty"`
	ParticipantVideo *bool  `json:"participant_video,omitempty"`
	JoinBeforeHost   *bool  `json:"join_before_host,omitempty"`
	MuteUponEntry    *bool  `json:"mute_upon_entry,omitempty"`
	WaitingRoom      *bool  `json:"waiting_room,omitempty"`
	AutoRecording    string `json:"auto_recording,omitempty"`
	AlternativeHosts string `json:"alternative_hosts,omitempty"`
}

// PastInstance is one ended occurrence of a meeting.
type PastInstance struct {
	UUID      string `json:"uuid"`
	StartTime string `json:"start_time"`
}

type Recording struct {
	UUID           string          `json:"uuid"`
	ID             int64           `json:"id"`
	AccountID      string          `json:"account_id,omitempty"`
	HostID         string          `json:"host_id,omitempty"`
	Topic          string          `json:"topic,omitempty"`
	StartTime      string          `json:"start_time,omitempty"`
	Duration       int             `json:"duration,omitempty"`
	TotalSize      int64           `json:"total_size,omitempty"`
	RecordingCount int             `json:"recording_count,omitempty"`
	ShareURL       string          `json:"share_url,omitempty"`
	RecordingFiles []RecordingFile `json:"recording_files,omitempty"`
}

type RecordingFile struct {
	ID             string `json:"id"`
	MeetingID      string `json:"meeting_id,omitempty"`
	RecordingStart string `json:"recording_start,omitempty"`
	RecordingEnd   string `json:"recording_end,omitempty"`
	FileType       string `json:"file_type,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
	PlayURL        string `json:"play_url,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
	Status         string `json:"status,omitempty"`
	RecordingType  string `json:"recording_type,omitempty"`
}

// AltHostStatus is the outcome of adding one alternative host.
type AltHostStatus string

const (
	AltHostSuccess AltHostStatus = "success"
	AltHostNoUser  AltHostStatus = "no_user"
)
