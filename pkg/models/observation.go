package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Outcome is the terminal result of one CI build.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeAborted Outcome = "ABORTED"
	OutcomeUnknown Outcome = "UNKNOWN"
)

// ParseOutcome maps a raw CI result onto the closed Outcome set. A missing or
// pending result is UNKNOWN; any other unrecognized value counts as FAILURE.
func ParseOutcome(raw string) Outcome {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS":
		return OutcomeSuccess
	case "FAILURE":
		return OutcomeFailure
	case "ABORTED":
		return OutcomeAborted
	case "", "UNKNOWN", "PENDING":
		return OutcomeUnknown
	default:
		return OutcomeFailure
	}
}

// Rank orders outcomes for deterministic tie-breaking. Lower ranks win.
func (o Outcome) Rank() int {
	switch o {
	case OutcomeSuccess:
		return 0
	case OutcomeFailure:
		return 1
	case OutcomeUnknown:
		return 2
	case OutcomeAborted:
		return 3
	default:
		return 4
	}
}

// UnmarshalJSON normalizes the stored status through ParseOutcome.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding outcome: %w", err)
	}
	*o = ParseOutcome(s)
	return nil
}

// BuildKey identifies one CI run. It is taken from the location the build was
// found at and never re-derived from a formatted URL.
type BuildKey struct {
	PRNumber string `json:"pr_number"`
	JobName  string `json:"job_name"`
	BuildID  string `json:"build_id"`
}

// IsZero reports whether the key is unset.
func (k BuildKey) IsZero() bool {
	return k == BuildKey{}
}

// String renders the key as pr/job/build.
func (k BuildKey) String() string {
	return k.PRNumber + "/" + k.JobName + "/" + k.BuildID
}

// Less orders keys field by field.
func (k BuildKey) Less(other BuildKey) bool {
	if k.PRNumber != other.PRNumber {
		return k.PRNumber < other.PRNumber
	}
	if k.JobName != other.JobName {
		return k.JobName < other.JobName
	}
	return k.BuildID < other.BuildID
}

// Observation is one CI build's outcome for a platform and component pair.
type Observation struct {
	PlatformVersion  string
	ComponentVersion string
	Outcome          Outcome
	SourceURL        string
	ObservedAt       int64
	Variant          string
	Build            BuildKey
}

type observationJSON struct {
	PlatformVersion  string    `json:"ocp_full_version"`
	ComponentVersion string    `json:"operator_version"`
	Outcome          Outcome   `json:"test_status"`
	SourceURL        string    `json:"prow_job_url"`
	ObservedAt       int64     `json:"job_timestamp"`
	Variant          string    `json:"test_flavor,omitempty"`
	Build            *BuildKey `json:"build,omitempty"`
}

type observationReadJSON struct {
	PlatformVersion        string       `json:"ocp_full_version"`
	ComponentVersion       string       `json:"operator_version"`
	LegacyComponentVersion string       `json:"gpu_operator_version"`
	Outcome                Outcome      `json:"test_status"`
	SourceURL              string       `json:"prow_job_url"`
	ObservedAt             flexibleUnix `json:"job_timestamp"`
	Variant                string       `json:"test_flavor"`
	Build                  *BuildKey    `json:"build"`
}

// MarshalJSON writes the history field names.
func (o Observation) MarshalJSON() ([]byte, error) {
	out := observationJSON{
		PlatformVersion:  o.PlatformVersion,
		ComponentVersion: o.ComponentVersion,
		Outcome:          o.Outcome,
		SourceURL:        o.SourceURL,
		ObservedAt:       o.ObservedAt,
		Variant:          o.Variant,
	}
	if !o.Build.IsZero() {
		b := o.Build
		out.Build = &b
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the history field names, including the legacy
// gpu_operator_version field and string timestamps.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var in observationReadJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding observation: %w", err)
	}
	component := in.ComponentVersion
	if component == "" {
		component = in.LegacyComponentVersion
	}
	*o = Observation{
		PlatformVersion:  in.PlatformVersion,
		ComponentVersion: component,
		Outcome:          in.Outcome,
		SourceURL:        in.SourceURL,
		ObservedAt:       int64(in.ObservedAt),
		Variant:          in.Variant,
	}
	if o.Outcome == "" {
		o.Outcome = OutcomeUnknown
	}
	if in.Build != nil {
		o.Build = *in.Build
	}
	return nil
}

// flexibleUnix decodes a timestamp stored either as a number or a numeric string.
type flexibleUnix int64

func (f *flexibleUnix) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("decoding timestamp %q: %w", s, err)
		}
		n = int64(fl)
	}
	*f = flexibleUnix(n)
	return nil
}

// HistoryBucket is the persisted record of one platform minor.
type HistoryBucket struct {
	Notes               []string      `json:"notes"`
	BundleObservations  []Observation `json:"bundle_tests"`
	ReleaseObservations []Observation `json:"release_tests"`
	SourceLinks         []string      `json:"job_history_links"`
}

// NewHistoryBucket returns a bucket with empty, non-nil lists.
func NewHistoryBucket() *HistoryBucket {
	return &HistoryBucket{
		Notes:               []string{},
		BundleObservations:  []Observation{},
		ReleaseObservations: []Observation{},
		SourceLinks:         []string{},
	}
}

// History maps platform minors to their bucket.
type History map[string]*HistoryBucket

// PlatformBatch holds observations freshly collected for one platform minor.
type PlatformBatch struct {
	Bundle      []Observation
	Release     []Observation
	SourceLinks []string
}

// Add appends a bundle or release observation.
func (b *PlatformBatch) Add(obs Observation, bundle bool) {
	if bundle {
		b.Bundle = append(b.Bundle, obs)
		return
	}
	b.Release = append(b.Release, obs)
}
