package versions

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setBuildInfo(t *testing.T, version, commit, buildDate string) {
	t.Helper()
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
	})
	Version, Commit, BuildDate = version, commit, buildDate
}

func TestGetVersionInfo(t *testing.T) { //nolint:paralleltest // mutates package-level build info
	tests := []struct {
		name          string
		version       string
		commit        string
		buildDate     string
		wantVersion   string
		wantBuildDate string
	}{
		{
			name:          "development build uses short commit",
			version:       "dev",
			commit:        "0f3c9a71be52d04e",
			buildDate:     unknownStr,
			wantVersion:   "build-0f3c9a71",
			wantBuildDate: unknownStr,
		},
		{
			name:          "development build with short commit keeps it whole",
			version:       "dev",
			commit:        "7e1a",
			buildDate:     unknownStr,
			wantVersion:   "build-7e1a",
			wantBuildDate: unknownStr,
		},
		{
			name:          "development build without commit",
			version:       "dev",
			commit:        unknownStr,
			buildDate:     unknownStr,
			wantVersion:   "build-unknown",
			wantBuildDate: unknownStr,
		},
		{
			name:          "release build reformats RFC3339 date in UTC",
			version:       "v0.4.0",
			commit:        "0f3c9a71be52d04e",
			buildDate:     "2026-03-02T18:45:10+02:00",
			wantVersion:   "v0.4.0",
			wantBuildDate: "2026-03-02 16:45:10 UTC",
		},
		{
			name:          "unparseable build date is passed through",
			version:       "v0.4.0",
			commit:        "0f3c9a71be52d04e",
			buildDate:     "yesterday",
			wantVersion:   "v0.4.0",
			wantBuildDate: "yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBuildInfo(t, tt.version, tt.commit, tt.buildDate)

			info := GetVersionInfo()
			assert.Equal(t, VersionInfo{
				Version:   tt.wantVersion,
				Commit:    tt.commit,
				BuildDate: tt.wantBuildDate,
				GoVersion: runtime.Version(),
				Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
			}, info)
		})
	}
}
