// -----------------------------------------------------------------------
// Target - A career page the swarm attempts to apply through
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/peto/internal/common"
	"gopkg.in/yaml.v3"
)

// Target is a single company career page entry point.
type Target struct {
	Company string `json:"company" yaml:"company" validate:"required"`
	URL     string `json:"url" yaml:"url" validate:"required,url"`
}

// Slug returns the filesystem-safe identifier for this target, used in
// screenshot, source, and forensic artifact names.
func (t Target) Slug() string {
	return common.Slugify(t.Company)
}

// Validate validates the target using go-playground/validator.
func (t Target) Validate() error {
	validate := validator.New()
	return validate.Struct(t)
}

// targetsFile is the on-disk shape of the targets YAML file.
type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadTargets reads the target list from a YAML file. A missing file is
// not an error; the built-in default list is returned instead.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTargets(), nil
		}
		return nil, fmt.Errorf("failed to read targets file %s: %w", path, err)
	}

	var file targetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse targets file %s: %w", path, err)
	}

	if len(file.Targets) == 0 {
		return DefaultTargets(), nil
	}

	for i, target := range file.Targets {
		if err := target.Validate(); err != nil {
			return nil, fmt.Errorf("target %d (%s) invalid: %w", i, target.Company, err)
		}
	}

	return file.Targets, nil
}

// DefaultTargets returns the built-in maritime/dredging company list.
func DefaultTargets() []Target {
	return []Target{
		{Company: "Curtin Maritime", URL: "https://curtinmaritime.bamboohr.com/jobs"},
		{Company: "Great Lakes Dredge & Dock", URL: "https://gldd.com/careers/"},
		{Company: "Weeks Marine", URL: "https://kiewitcareers.kiewit.com/Weeks"},
		{Company: "Manson Construction", URL: "https://www.mansonconstruction.com/careers"},
		{Company: "Callan Marine", URL: "https://www.callanmarineltd.com/careers"},
		{Company: "Cashman Dredging", URL: "https://www.jaycashman.com/careers/"},
		{Company: "Viking Dredging", URL: "https://www.vikingdredging.com/join-our-team.php"},
		{Company: "Muddy Water Dredging", URL: "https://mwdredging.com/job-opportunities/"},
		{Company: "Orion Government Services", URL: "https://oriongov.com"},
		{Company: "Moran Towing", URL: "https://www.morantug.com/careers-at-moran/"},
	}
}
