package scope

// DefaultEnvAllowlist returns the built-in environmental path patterns
// seeded into scope.env_allowlist when a project does not configure its
// own. These mirror the categories the teacher's garbage detector flags
// as never worth attributing to a run's semantic change set: build
// artifacts, editor/VCS noise, and local secrets.
func DefaultEnvAllowlist() []string {
	return []string{
		"**/.DS_Store",
		"**/*.tmp",
		"**/*.bak",
		"**/*.swp",
		"**/*~",
		"**/*.orig",
		"**/coverage.out",
		"**/coverage.html",
		"vendor/**",
		"node_modules/**",
		"dist/**",
		"build/**",
		"**/__debug_bin*",
	}
}
