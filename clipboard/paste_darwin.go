//go:build darwin

package clipboard

import "github.com/micmonay/keybd_event"

// Init is a no-op on macOS; the key bonding is created per paste.
func Init() error { return nil }

// sendPaste presses Cmd+V.
func sendPaste() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true)
	return kb.Launching()
}
