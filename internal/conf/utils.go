// conf/utils.go
package conf

import (
	"fmt"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the default configuration search paths for
// the current operating system.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("error fetching executable path: %w", err)
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "showconsole"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "showconsole"),
			"/etc/showconsole",
		}
	}

	return configPaths, nil
}

// PrintUserInfo warns when the running user lacks the "audio" group
// membership PortAudio needs for direct PCM device access on Linux.
func PrintUserInfo() {
	if runtime.GOOS != "linux" {
		return
	}
	currentUser, err := user.Current()
	if err != nil {
		fmt.Printf("failed to get current user: %v\n", err)
		return
	}
	if currentUser.Username == "root" {
		return
	}

	groupIDs, err := currentUser.GroupIds()
	if err != nil {
		log.Printf("failed to get group memberships: %v\n", err)
		return
	}

	for _, gid := range groupIDs {
		group, err := user.LookupGroupId(gid)
		if err != nil {
			continue
		}
		if group.Name == "audio" {
			return
		}
	}
	log.Printf("user %q is not a member of the audio group; PortAudio playback may fail", currentUser.Username)
	log.Println("sudo usermod -a -G audio", currentUser.Username)
}
