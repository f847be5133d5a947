package common

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/P5ina/open-mobile-cli/pkg/protocol"
	"github.com/P5ina/open-mobile-cli/server/config"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Devices is the in-memory mirror of the on-disk device registry, keyed by
// device ID. It is the server's sole source of truth for device identity;
// registry.go owns loading it once at startup and rewriting the whole file
// on every mutation.
var Devices = cmap.New[protocol.Device]()

var registryMu sync.Mutex

// LoadRegistry populates Devices from devices.json. A missing file is a
// fresh install, not an error.
func LoadRegistry() error {
	path := config.DevicesPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var list []protocol.Device
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	for _, d := range list {
		Devices.Set(d.ID, d)
	}
	return nil
}

// SaveRegistry rewrites devices.json from the current contents of Devices.
// Writes are atomic (write-temp-then-rename) but best-effort: a failure is
// returned to the caller to log, never to abort the mutation that
// triggered it.
func SaveRegistry() error {
	registryMu.Lock()
	defer registryMu.Unlock()

	list := make([]protocol.Device, 0, Devices.Count())
	for item := range Devices.IterBuffered() {
		list = append(list, item.Val)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	dir := config.DataDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	target := config.DevicesPath()
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// PutDevice upserts a device record and persists the registry, logging (not
// returning) any write failure; registry writes are best-effort.
func PutDevice(d protocol.Device) {
	Devices.Set(d.ID, d)
	if err := SaveRegistry(); err != nil {
		Error(nil, "REGISTRY_SAVE", "fail", err.Error(), nil)
	}
}

// DeleteDevice removes a device from the registry and persists. Returns
// false if the device did not exist.
func DeleteDevice(id string) bool {
	if _, ok := Devices.Get(id); !ok {
		return false
	}
	Devices.Remove(id)
	if err := SaveRegistry(); err != nil {
		Error(nil, "REGISTRY_SAVE", "fail", err.Error(), nil)
	}
	return true
}
