package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gagliardetto/solana-go"
)

// Scenario is a set of checks against one IDL document.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// IDL is the path of the IDL document. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	IDL string `yaml:"idl"`

	// ProgramID overrides the program address from the IDL. Required for
	// instruction checks with accounts when the IDL carries no address.
	ProgramID string `yaml:"program_id,omitempty"`

	Accounts     []AccountCheck     `yaml:"accounts,omitempty"`
	Events       []EventCheck       `yaml:"events,omitempty"`
	Instructions []InstructionCheck `yaml:"instructions,omitempty"`
}

// DataCheck is the part shared by account and event checks. Exactly one of
// DataHex and Value is set.
type DataCheck struct {
	// DataHex is the raw data including the discriminator.
	DataHex string `yaml:"data_hex,omitempty"`

	// Value is JSON-shaped data to encode, discriminator included, before
	// decoding it back.
	Value any `yaml:"value,omitempty"`

	// Expect is a subset of the decoded value.
	Expect map[string]any `yaml:"expect,omitempty"`

	// ExpectError is the error kind the check must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// AccountCheck decodes account data.
type AccountCheck struct {
	Account   string `yaml:"account"`
	DataCheck `yaml:",inline"`
}

// EventCheck decodes event data.
type EventCheck struct {
	Event     string `yaml:"event"`
	DataCheck `yaml:",inline"`
}

// InstructionCheck builds instruction data from arguments.
type InstructionCheck struct {
	Instruction string `yaml:"instruction"`

	// Args is a positional list or a map keyed by argument name.
	Args any `yaml:"args"`

	// ExpectHex is the full instruction data, discriminator included.
	ExpectHex string `yaml:"expect_hex,omitempty"`

	// Expect is a subset of the arguments parsed back from the data.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Accounts supplies account keys by name. When set, or when
	// ExpectAccounts is set, the full instruction is built with account
	// resolution.
	Accounts map[string]string `yaml:"accounts,omitempty"`

	// ExpectAccounts lists the resolved account keys in order.
	ExpectAccounts []string `yaml:"expect_accounts,omitempty"`

	ExpectError string `yaml:"expect_error,omitempty"`
}

// resolvesAccounts reports whether the check builds a full instruction.
func (c InstructionCheck) resolvesAccounts() bool {
	return c.Accounts != nil || c.ExpectAccounts != nil
}

// LoadScenario reads and parses a scenario YAML file. The IDL path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML, resolving a relative IDL path against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.IDL != "" && !filepath.IsAbs(scenario.IDL) && baseDir != "" {
		scenario.IDL = filepath.Join(baseDir, scenario.IDL)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.IDL == "" {
		return fmt.Errorf("idl is required")
	}
	if _, err := os.Stat(s.IDL); err != nil {
		return fmt.Errorf("idl file not found: %s", s.IDL)
	}
	if s.ProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(s.ProgramID); err != nil {
			return fmt.Errorf("program_id: %w", err)
		}
	}
	if len(s.Accounts)+len(s.Events)+len(s.Instructions) == 0 {
		return fmt.Errorf("at least one account, event or instruction check is required")
	}

	for i, c := range s.Accounts {
		if c.Account == "" {
			return fmt.Errorf("accounts[%d]: account is required", i)
		}
		if err := validateData(c.DataCheck); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
	}
	for i, c := range s.Events {
		if c.Event == "" {
			return fmt.Errorf("events[%d]: event is required", i)
		}
		if err := validateData(c.DataCheck); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}
	for i, c := range s.Instructions {
		if err := validateInstruction(c); err != nil {
			return fmt.Errorf("instructions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateData(c DataCheck) error {
	if (c.DataHex == "") == (c.Value == nil) {
		return fmt.Errorf("exactly one of data_hex and value is required")
	}
	if c.DataHex != "" {
		if _, err := hex.DecodeString(c.DataHex); err != nil {
			return fmt.Errorf("data_hex: %w", err)
		}
	}
	if c.ExpectError != "" && c.Expect != nil {
		return fmt.Errorf("expect and expect_error are mutually exclusive")
	}
	return nil
}

func validateInstruction(c InstructionCheck) error {
	if c.Instruction == "" {
		return fmt.Errorf("instruction is required")
	}
	if c.ExpectHex != "" {
		if _, err := hex.DecodeString(c.ExpectHex); err != nil {
			return fmt.Errorf("expect_hex: %w", err)
		}
	}
	if c.ExpectError != "" && (c.Expect != nil || c.ExpectHex != "" || c.ExpectAccounts != nil) {
		return fmt.Errorf("expect_error excludes the other expectations")
	}
	for name, key := range c.Accounts {
		if _, err := solana.PublicKeyFromBase58(key); err != nil {
			return fmt.Errorf("accounts.%s: %w", name, err)
		}
	}
	for i, key := range c.ExpectAccounts {
		if _, err := solana.PublicKeyFromBase58(key); err != nil {
			return fmt.Errorf("expect_accounts[%d]: %w", i, err)
		}
	}
	return nil
}
