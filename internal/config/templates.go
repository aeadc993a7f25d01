package config

import (
	"fmt"
	"os"
)

// Template returns a commented starter configuration.
func Template() string {
	return defaultTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `# Device paths or glob patterns, tried in order.
ports = ["/dev/ttyACM*", "/dev/ttyUSB*", "/dev/tty.usbmodem*"]
baud_rate = 9600

query_timeout = "5s"
write_timeout = "2s"

backoff_initial = "500ms"
backoff_max = "10s"
backoff_multiplier = 2.0

# Optional HTTP status surface.
# status_addr = "127.0.0.1:9120"
# status_token = "change-me"
# status_cors_origins = ["http://localhost:3000"]
`
