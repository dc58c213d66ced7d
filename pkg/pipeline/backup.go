package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dwforge/romfmt/pkg/operations"
	"github.com/dwforge/romfmt/pkg/utils/permissions"
	"github.com/moby/sys/atomicwriter"
	"github.com/segmentio/ksuid"

	_ "github.com/dwforge/romfmt/pkg/operations/compress"
)

// BackupDirName is used when no backup directory is configured
const BackupDirName = ".romfmt-backups"

// BackupOptions controls the copy ReinsertFile takes before writing
type BackupOptions struct {
	Dir   string  // empty means BackupDirName next to the ROM
	Chain []uint8 // operations applied to the image, e.g. bzip2
	Mode  os.FileMode
}

// DefaultBackupOptions stores uncompressed read-only copies next to the ROM
func DefaultBackupOptions() BackupOptions {
	return BackupOptions{Mode: permissions.BackupFilePerms}
}

func (b BackupOptions) dirFor(romPath string) string {
	if b.Dir != "" {
		return b.Dir
	}
	return filepath.Join(filepath.Dir(romPath), BackupDirName)
}

// writeBackup stores image under a KSUID-stamped name, so backups sort by
// creation time and never collide
func (b BackupOptions) writeBackup(romPath string, image []byte) (string, error) {
	dir := b.dirFor(romPath)
	if err := os.MkdirAll(dir, permissions.DefaultDirPerms); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	packed, err := operations.ApplyChain(image, b.Chain)
	if err != nil {
		return "", fmt.Errorf("compressing backup: %w", err)
	}

	name := fmt.Sprintf("%s.%s.bak%s", filepath.Base(romPath), ksuid.New().String(), operations.ChainExtension(b.Chain))
	path := filepath.Join(dir, name)

	mode := b.Mode
	if mode == 0 {
		mode = permissions.BackupFilePerms
	}
	if err := atomicwriter.WriteFile(path, packed, mode); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return path, nil
}

// ReadBackup returns the original image stored in a backup file. The
// operation chain is recovered from the file name.
func ReadBackup(path string) ([]byte, error) {
	base := filepath.Base(path)
	i := strings.LastIndex(base, ".bak")
	if i < 0 {
		return nil, fmt.Errorf("%s is not a backup file", base)
	}
	chain, err := operations.ParseExtension(base[i+len(".bak"):])
	if err != nil {
		return nil, err
	}

	packed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return operations.ReverseChain(packed, chain)
}

// BackupID extracts the KSUID from a backup file name
func BackupID(path string) (ksuid.KSUID, error) {
	parts := strings.Split(filepath.Base(path), ".")
	for i := len(parts) - 1; i > 0; i-- {
		if parts[i] == "bak" {
			return ksuid.Parse(parts[i-1])
		}
	}
	return ksuid.Nil, fmt.Errorf("%s is not a backup file", filepath.Base(path))
}
