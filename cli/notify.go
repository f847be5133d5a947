package cli

import "fmt"

func Notify(message, priority string) error {
	body := map[string]any{
		"command": "notify.send",
		"params": map[string]any{
			"title":    "omcli",
			"body":     message,
			"priority": priority,
		},
	}
	if _, err := apiRequest("POST", "/api/command", body); err != nil {
		return err
	}
	fmt.Println("Notification sent")
	return nil
}
