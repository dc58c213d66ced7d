package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/dwforge/romfmt/pkg/format"
)

const (
	completeMarker   = ".unpack.complete"
	incompleteMarker = ".unpack.incomplete"
)

// Marker records which ROM a workspace was unpacked from
type Marker struct {
	Timestamp   time.Time                   `json:"timestamp"`
	Profile     string                      `json:"profile"`
	ROMChecksum string                      `json:"rom_checksum"`
	Assets      map[format.AssetType]string `json:"assets"`
}

// MarkComplete records a finished unpack of the ROM with the given checksum
func (w *Workspace) MarkComplete(profile string, romChecksum uint32, assets map[format.AssetType]uint32) error {
	marker := Marker{
		Timestamp:   time.Now().UTC(),
		Profile:     profile,
		ROMChecksum: format.FormatChecksum(romChecksum),
		Assets:      make(map[format.AssetType]string, len(assets)),
	}
	for t, sum := range assets {
		marker.Assets[t] = format.FormatChecksum(sum)
	}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}

	os.Remove(filepath.Join(w.Dir, incompleteMarker))
	return w.write(filepath.Join(w.Dir, completeMarker), data)
}

// ReadMarker returns the completion marker, if any
func (w *Workspace) ReadMarker() (*Marker, error) {
	data, err := os.ReadFile(filepath.Join(w.Dir, completeMarker))
	if err != nil {
		return nil, err
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// IsValid reports whether the workspace holds a complete unpack of the ROM
// with the given checksum under the given profile
func (w *Workspace) IsValid(profile string, romChecksum uint32) bool {
	m, err := w.ReadMarker()
	if err != nil {
		return false
	}
	if m.Profile != profile || m.ROMChecksum != format.FormatChecksum(romChecksum) {
		return false
	}
	for t := range m.Assets {
		if _, err := os.Stat(w.DocumentPath(t)); err != nil {
			return false
		}
	}
	return true
}

// MarkIncomplete flags a failed unpack
func (w *Workspace) MarkIncomplete(reason string) error {
	if err := w.ensureDir(); err != nil {
		return err
	}
	marker := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"reason":    reason,
	}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}

	os.Remove(filepath.Join(w.Dir, completeMarker))
	return w.write(filepath.Join(w.Dir, incompleteMarker), data)
}
