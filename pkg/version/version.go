package version

import (
	"fmt"
)

// Set at build time with -ldflags "-X github.com/acorn-io/acorn-ddns/pkg/version.Tag=..."
var (
	Tag       = "v0.0.0-dev"
	GitCommit = "HEAD"
)

type Version struct {
	Tag       string `json:"tag"`
	GitCommit string `json:"gitCommit"`
}

func (v Version) String() string {
	if len(v.GitCommit) > 8 {
		return fmt.Sprintf("%s (%s)", v.Tag, v.GitCommit[:8])
	}
	return fmt.Sprintf("%s (%s)", v.Tag, v.GitCommit)
}

func Get() Version {
	return Version{
		Tag:       Tag,
		GitCommit: GitCommit,
	}
}
