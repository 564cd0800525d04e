package version

import "runtime"

// Build metadata injected at link time via -ldflags.
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GoInfo        = runtime.Version()
)

// Info is the serializable view of the build metadata.
type Info struct {
	Release    string `json:"release" yaml:"release"`
	Commit     string `json:"commit" yaml:"commit"`
	CommitDate string `json:"commit_date" yaml:"commit_date"`
	Go         string `json:"go" yaml:"go"`
}

func Get() Info {
	return Info{
		Release:    GitRelease,
		Commit:     GitCommit,
		CommitDate: GitCommitDate,
		Go:         GoInfo,
	}
}
