// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Digest is the shortlist produced for one category and period, with the
// trace needed to explain it.
type Digest struct {
	Category    string       `json:"category" yaml:"category"`
	Period      Period       `json:"period" yaml:"period"`
	WindowDays  int          `json:"window_days" yaml:"window_days"`
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
	Focus       FocusProfile `json:"focus,omitempty" yaml:"focus,omitempty"`

	// Candidates is the number of items loaded for the window.
	Candidates int `json:"candidates" yaml:"candidates"`

	// Threshold is the relevance threshold ranking settled on.
	Threshold int `json:"threshold" yaml:"threshold"`

	// Relaxed is set when selection widened the per-source cap.
	Relaxed bool `json:"relaxed" yaml:"relaxed"`

	Items   []RankedItem      `json:"items" yaml:"items"`
	Reasons map[string]string `json:"reasons" yaml:"reasons"`
}

// IsEmpty reports whether nothing met the bar this period.
func (d Digest) IsEmpty() bool {
	return len(d.Items) == 0
}
