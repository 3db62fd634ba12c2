package game

// Status is the terminal classification of a finished match.
type Status int

const (
	StatusOK Status = iota
	StatusCustomGame
	StatusSolo
	StatusUnsupportedMode
	StatusTooShort
	StatusDuplicate
	StatusMissingData
	StatusError
)

var statusNames = map[Status]string{
	StatusOK:              "ok",
	StatusCustomGame:      "custom_game",
	StatusSolo:            "solo",
	StatusUnsupportedMode: "unsupported_mode",
	StatusTooShort:        "too_short",
	StatusDuplicate:       "duplicate",
	StatusMissingData:     "missing_data",
	StatusError:           "error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Deliverable reports whether the status may only ever be handed to the
// consumer once per match. MissingData and Error can be reported again.
func (s Status) Deliverable() bool {
	return s != StatusMissingData && s != StatusError
}
