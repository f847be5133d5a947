package cli

import (
	"fmt"
	"strings"
)

func ListDevices() error {
	devices, err := apiRequestList("GET", "/api/devices")
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No devices paired")
		return nil
	}

	fmt.Printf("%-38s %-20s %-10s\n", "ID", "NAME", "STATUS")
	fmt.Println(strings.Repeat("-", 68))
	for i := range devices {
		id, _ := devices[i]["id"].(string)
		name, _ := devices[i]["name"].(string)
		online, _ := devices[i]["online"].(bool)
		status := "offline"
		if online {
			status = "online"
		}
		if id == "" {
			id = "?"
		}
		if name == "" {
			name = "?"
		}
		fmt.Printf("%-38s %-20s %-10s\n", id, name, status)
	}
	return nil
}
