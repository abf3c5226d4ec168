package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// eventsFile is the input of generate and bulk: a world and the events to
// narrate against it, in order.
type eventsFile struct {
	Entities []*schema.Entity `json:"entities"`
	Events   []schema.Event   `json:"events"`
}

func loadEvents(path string) (*eventsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	var f eventsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse events %s: %w", path, err)
	}
	if len(f.Events) == 0 {
		return nil, fmt.Errorf("%s: no events", path)
	}
	return &f, nil
}

func (f *eventsFile) World() schema.World {
	return schema.NewWorld(f.Entities...)
}
