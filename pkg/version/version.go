package version

import (
	"fmt"
	"runtime"
)

// Set at build time, e.g.
// go build -ldflags "-X github.com/VeltarosLabs/powledger/pkg/version.Version=0.2.0 -X github.com/VeltarosLabs/powledger/pkg/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "0.1.0"
	Commit  = "dev"
)

const Name = "powledger"

type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders a one-line banner such as "powledger 0.1.0 (dev, go1.25.5 linux/amd64)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, %s %s)", i.Name, i.Version, i.Commit, i.GoVersion, i.Platform)
}
