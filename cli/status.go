package cli

import "fmt"

func ServerStatus() error {
	resp, err := apiRequest("GET", "/api/status", nil)
	if err != nil {
		return err
	}

	fmt.Println("Server Status:")
	if v, ok := resp["version"].(string); ok {
		fmt.Printf("  Version:        %s\n", v)
	}
	if u, ok := resp["uptime_secs"].(float64); ok {
		secs := int64(u)
		h, m, s := secs/3600, (secs%3600)/60, secs%60
		fmt.Printf("  Uptime:         %dh %dm %ds\n", h, m, s)
	}
	if o, ok := resp["devices_online"]; ok {
		fmt.Printf("  Devices online: %v\n", o)
	}
	if t, ok := resp["devices_total"]; ok {
		fmt.Printf("  Devices total:  %v\n", t)
	}
	return nil
}
