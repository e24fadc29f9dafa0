package domain

import "fmt"

type PermissionState string

const (
	PermissionDefault PermissionState = "default"
	PermissionDenied  PermissionState = "denied"
	PermissionGranted PermissionState = "granted"
)

func ParsePermission(value string) (PermissionState, error) {
	switch state := PermissionState(value); state {
	case PermissionDefault, PermissionDenied, PermissionGranted:
		return state, nil
	}
	return "", fmt.Errorf("unknown permission state %q", value)
}
