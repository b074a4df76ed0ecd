//go:build !linux && !darwin

//lint:file-ignore U1000 Platform-specific stub functions

package notify

// createNotifyFd returns -1, -1, there being no descriptor to poll. The
// resulting Notifier behaves like Disabled.
func createNotifyFd() (int, int, error) {
	return -1, -1, nil
}

func writeNotifyFd(int) error { return nil }

func drainNotifyFd(int) {}

func closeNotifyFd(int) error { return nil }
