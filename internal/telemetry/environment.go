package telemetry

import (
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tracehook/tracehook/internal/telemetry/model"
)

// defaultEnvVars lists the environment variables captured into
// Environment.Env when present; deliberately small and non-sensitive (no
// secrets, no credentials) — anything else passed through tool inputs is
// redacted before it ever reaches a log line, see internal/obs.Redact.
var defaultEnvVars = []string{"PATH", "SHELL", "LANG", "TERM", "CI"}

// DetectEnvironment builds an Environment snapshot once, at session start.
// projectRoot is optional (the caller may not know one); user name and
// timezone are derived from the OS.
func DetectEnvironment(projectRoot string) model.Environment {
	cwd, _ := os.Getwd()

	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}

	env := make(map[string]string)
	for _, key := range defaultEnvVars {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}

	osVersion := ""
	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		osVersion = unix.ByteSliceToString(uts.Release[:])
	}

	return model.Environment{
		OSType:      runtime.GOOS,
		OSVersion:   osVersion,
		GoVersion:   runtime.Version(),
		Cwd:         cwd,
		ProjectRoot: projectRoot,
		User:        user,
		Timezone:    currentZoneName(),
		Env:         env,
	}
}

func currentZoneName() string {
	name, _ := time.Now().Zone()
	return name
}
