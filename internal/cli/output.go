package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"fleetsync/internal/queue"
)

// Status summarizes the queue for the status command. Failed items get their
// own counter: dead-lettered work must stay visible, not vanish behind the
// pending count.
type Status struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// renderStatus writes the status in the requested format.
func renderStatus(w io.Writer, format string, st Status) error {
	if format == "json" {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "pending: %d\n", st.Pending)
	fmt.Fprintf(w, "failed: %d\n", st.Failed)
	return nil
}

// drainOutput is the JSON shape of a drain result.
type drainOutput struct {
	Synced   int `json:"synced"`
	Failed   int `json:"failed"`
	Deferred int `json:"deferred"`
}

// renderDrain writes a drain result in the requested format.
func renderDrain(w io.Writer, format string, res queue.DrainResult) error {
	if format == "json" {
		return writeJSON(w, drainOutput(res))
	}
	fmt.Fprintf(w, "synced: %d\n", res.Synced)
	fmt.Fprintf(w, "failed: %d\n", res.Failed)
	fmt.Fprintf(w, "deferred: %d\n", res.Deferred)
	return nil
}

// entityOutput is the JSON shape of a local mirror entry.
type entityOutput struct {
	ID       string         `json:"id"`
	ServerID string         `json:"server_id,omitempty"`
	Synced   bool           `json:"synced"`
	Fields   map[string]any `json:"fields"`
}

// renderEntities writes a local mirror snapshot in the requested format.
func renderEntities(w io.Writer, format string, entities []queue.LocalEntity) error {
	if format == "json" {
		out := make([]entityOutput, 0, len(entities))
		for _, e := range entities {
			out = append(out, entityOutput{
				ID:       e.ID,
				ServerID: e.ServerID,
				Synced:   e.Synced,
				Fields:   e.Fields,
			})
		}
		return writeJSON(w, out)
	}

	for _, e := range entities {
		marker := " "
		if e.Synced {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s", marker, e.ID)
		if e.ServerID != "" {
			fmt.Fprintf(w, " (server %s)", e.ServerID)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d total (* = synced)\n", len(entities))
	return nil
}

// createOutput is the JSON shape of a creation result.
type createOutput struct {
	LocalID string `json:"local_id"`
	Synced  bool   `json:"synced"`
}

// renderCreate writes a creation result in the requested format.
func renderCreate(w io.Writer, format string, res queue.CreateResult) error {
	if format == "json" {
		return writeJSON(w, createOutput{LocalID: res.LocalID, Synced: res.Synced})
	}
	if res.Synced {
		fmt.Fprintf(w, "created %s (synced)\n", res.LocalID)
	} else {
		fmt.Fprintf(w, "created %s (queued for sync)\n", res.LocalID)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
