package utils

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func Now() time.Time {
	return time.Now().UTC()
}

func GenerateNanoIDWithPrefix(prefix string, length int) string {
	id, _ := gonanoid.New(length)
	return prefix + "_" + id
}
