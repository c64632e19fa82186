package types

// Status describes the local state of an environment checkout.
type Status string

const (
	// StatusAbsent means no local copy exists yet.
	StatusAbsent Status = "absent"

	// StatusMismatched means the path exists but is not a checkout of the
	// expected source.
	StatusMismatched Status = "mismatched"

	// StatusOutdated means the checkout is behind its source.
	StatusOutdated Status = "outdated"

	// StatusInSync means the checkout matches its source.
	StatusInSync Status = "insync"
)

// IsAbsent reports whether s is StatusAbsent. All other values are handled
// alike by the engine.
func (s Status) IsAbsent() bool {
	return s == StatusAbsent
}

// ModuleKind is the provenance kind of a module.
type ModuleKind string

const (
	ModuleKindGit   ModuleKind = "git"
	ModuleKindForge ModuleKind = "forge"
	ModuleKindLocal ModuleKind = "local"
)

// ModuleProperties reports a module's expected and observed versions.
type ModuleProperties struct {
	Kind ModuleKind

	// Expected is the desired version or ref.
	Expected string

	// Actual is the observed version. For git modules this is the checked
	// out commit.
	Actual string
}
