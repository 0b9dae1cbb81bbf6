package config

import (
	"fmt"
	"os"
	"path/filepath"
)

func Template() string {
	return configTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}

const configTemplate = `[postconf]
binary = "postconf"
grep = "grep"
# "substring" (compatible) or "token"
match = "substring"

# Leave host empty to run postconf locally.
[ssh]
host = ""
port = "22"
user = "root"
key_path = "/root/.ssh/id_ed25519"
known_hosts = ""
insecure_skip_host_key_checking = false
timeout = "10s"

[server]
id = "postconfctl"
addr = "127.0.0.1:9125"
cors_origins = ["http://localhost:3000"]
# Bearer token required on POST /seeds/...; empty disables auth.
token = ""

[journal]
path = ""

[metrics]
textfile = ""
`
