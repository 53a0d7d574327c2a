package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/groveworks/garden-controller/internal/config"
)

// WriteBootScript writes a shell script that drives every pump relay to its
// inactive level at boot, before the controller service starts. Keeps valves
// shut during the window between power-on and process start.
func WriteBootScript(cfg *config.Config) error {
	lines := []string{"#!/bin/bash", "", "# Garden controller pump pin configuration at boot", ""}

	for _, z := range cfg.Zones {
		drive := "dh"
		if cfg.RelayActiveHigh {
			drive = "dl"
		}
		lines = append(lines, fmt.Sprintf("# %s pump", z.Name))
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", z.PumpPin, drive))
		lines = append(lines, "")
	}

	contents := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(cfg.BootScriptPath, []byte(contents), 0755)
}

// InstallBootService writes a oneshot systemd unit that runs the boot script.
func InstallBootService(cfg *config.Config) error {
	unit := fmt.Sprintf(`[Unit]
Description=Configure garden pump pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, cfg.BootScriptPath)

	return os.WriteFile(cfg.BootServicePath, []byte(unit), 0644)
}

// InstallControllerService writes the systemd unit for the controller itself,
// ordered after the pin-configuration unit.
func InstallControllerService(cfg *config.Config) error {
	bootUnitName := filepath.Base(cfg.BootServicePath)

	unit := fmt.Sprintf(`[Unit]
Description=Garden irrigation controller
After=%s
Requires=%s

[Service]
Type=simple
User=%s
WorkingDirectory=%s
ExecStart=%s -config-file %s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, bootUnitName, bootUnitName, cfg.ServiceUser, cfg.ServiceWorkDir, cfg.ServiceBinPath, cfg.ConfigFile)

	return os.WriteFile(cfg.ControllerServicePath, []byte(unit), 0644)
}
