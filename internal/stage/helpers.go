package stage

import (
	"encoding/json"
	"strings"

	"reelsmith/internal/services"
	"reelsmith/internal/services/script"
)

// ParseScript parses the script payload stored on a job. On failure it
// returns a services.ErrValidation suitable for stage Execute methods. An
// empty payload parses to a zero script so Prepare checks can distinguish
// missing from malformed.
func ParseScript(raw string) (script.Script, error) {
	var parsed script.Script
	if strings.TrimSpace(raw) == "" {
		return parsed, nil
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return script.Script{}, services.Wrap(
			services.ErrValidation, "stage", "parse script",
			"Script payload missing or invalid; rerun scripting", err)
	}
	return parsed, nil
}

// EncodeScript serializes a script for storage on a job.
func EncodeScript(s script.Script) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "encode script",
			"Script payload could not be serialized", err)
	}
	return string(data), nil
}
