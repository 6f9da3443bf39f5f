package models

// SourceFile is one discovered declaration file.
type SourceFile struct {
	Path    string
	RelPath string
	Content []byte
}

// FileResult describes what a run produced for one output.
type FileResult struct {
	Source      string
	OutputPath  string
	InputBytes  int
	OutputBytes int
	Imports     int
	Diagnostics int
	Changed     bool
	CacheHit    bool
	Err         error
}

// Summary aggregates one run.
type Summary struct {
	Files     []FileResult
	Failed    int
	OutOfDate int
}
