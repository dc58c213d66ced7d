package pkg

import (
	"fmt"
	"os"

	"github.com/dwforge/romfmt/pkg/format"
	"github.com/dwforge/romfmt/pkg/records"
	"github.com/dwforge/romfmt/pkg/validate"
	"github.com/hashicorp/go-hclog"
)

// Check is one line of a verification report
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// VerifyReport lists every check run against one container file
type VerifyReport struct {
	Path   string
	Header *format.Header
	Checks []Check
	// Err is the first failure, nil when every check passed
	Err error
}

// Passed reports whether every check passed
func (r *VerifyReport) Passed() bool {
	return r.Err == nil
}

func (r *VerifyReport) pass(name, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, Passed: true, Detail: detail})
}

func (r *VerifyReport) fail(name string, err error) {
	r.Checks = append(r.Checks, Check{Name: name, Detail: err.Error()})
	if r.Err == nil {
		r.Err = err
	}
}

// VerifyContainerFile checks a container file at every level: header and
// size invariant, checksum, decode, then the validator's range and
// cross-reference passes. Later checks are skipped once there is nothing
// left to check, and the report says so.
func VerifyContainerFile(path string, v *validate.Validator, logger hclog.Logger) *VerifyReport {
	report := &VerifyReport{Path: path}
	logger.Info("Verifying container", "path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		report.fail("read", err)
		return report
	}

	c, err := format.ParseContainer(raw)
	if err != nil {
		report.fail("format", err)
		logger.Error("Format verification failed", "error", err)
		return report
	}
	report.Header = &c.Header
	report.pass("format", fmt.Sprintf("%s v%d.%d, %d data bytes", c.Header.AssetType, c.Header.VersionMajor, c.Header.VersionMinor, c.Header.DataSize))
	logger.Info("✓ Header valid", "type", c.Header.AssetType)

	if err := c.VerifyChecksum(); err != nil {
		report.fail("checksum", err)
		logger.Error("Checksum verification failed", "error", err)
		return report
	}
	report.pass("checksum", format.FormatChecksum(c.Header.Checksum))
	logger.Info("✓ Checksum valid")

	codec, err := records.Get(c.Header.AssetType)
	if err != nil {
		report.fail("decode", err)
		return report
	}
	asset, err := codec.Decode(c.Data)
	if err != nil {
		report.fail("decode", err)
		logger.Error("Decode failed", "error", err)
		return report
	}
	report.pass("decode", "")

	if err := v.Validate(asset); err != nil {
		for _, viol := range validate.Violations(err) {
			report.Checks = append(report.Checks, Check{Name: viol.Pass.String(), Detail: viol.String()})
		}
		report.Err = err
		logger.Error("✗ Validation failed", "violations", len(validate.Violations(err)))
		return report
	}
	report.pass("range", "")
	report.pass("reference", "")

	logger.Info("✓ Container verification passed")
	return report
}
