//go:build windows

package actions

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBoxW = user32.NewProc("MessageBoxW")
	procMessageBeep = user32.NewProc("MessageBeep")
	procLockStation = user32.NewProc("LockWorkStation")
)

const mbIconInformation = 0x40

type platformActions struct{}

func (platformActions) ShowMessage(title, body string) (string, error) {
	t, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return "", err
	}
	b, err := windows.UTF16PtrFromString(body)
	if err != nil {
		return "", err
	}
	ret, _, callErr := procMessageBoxW.Call(0,
		uintptr(unsafe.Pointer(b)), uintptr(unsafe.Pointer(t)), mbIconInformation)
	if ret == 0 {
		return "", fmt.Errorf("MessageBoxW: %v", callErr)
	}
	return "message displayed via MessageBox", nil
}

func (platformActions) PlayChime(repeat int) (string, error) {
	if repeat <= 0 {
		repeat = 3
	}
	for i := 0; i < repeat; i++ {
		_, _, _ = procMessageBeep.Call(mbIconInformation)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Sprintf("played %d beeps", repeat), nil
}

func (platformActions) LockScreen() (string, error) {
	ret, _, callErr := procLockStation.Call()
	if ret == 0 {
		return "", fmt.Errorf("LockWorkStation: %v", callErr)
	}
	return "screen locked", nil
}
