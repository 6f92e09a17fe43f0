package storage

import (
	"fmt"
	"strings"
	"time"
)

// ArchivePurpose groups archived objects by where the payload came from.
type ArchivePurpose string

const (
	PurposeCourierWebhook ArchivePurpose = "courier-webhook"
)

// PathParams identify one archived object.
type PathParams struct {
	Source     string
	ReceivedAt time.Time
	ObjectID   string
}

// BuildObjectPath composes the object key for an archived payload.
func BuildObjectPath(purpose ArchivePurpose, params PathParams) (string, error) {
	switch purpose {
	case PurposeCourierWebhook:
		return buildWebhookPath(params)
	default:
		return "", fmt.Errorf("storage: unsupported archive purpose %q", purpose)
	}
}

func buildWebhookPath(params PathParams) (string, error) {
	source, err := validateSegment("source", strings.ToLower(params.Source))
	if err != nil {
		return "", err
	}
	objectID, err := validateSegment("objectID", params.ObjectID)
	if err != nil {
		return "", err
	}
	if params.ReceivedAt.IsZero() {
		return "", fmt.Errorf("storage: receivedAt is required")
	}
	day := params.ReceivedAt.UTC().Format("2006/01/02")
	return fmt.Sprintf("webhooks/%s/%s/%s.json", source, day, objectID), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
