package utils

import (
	"log"
	"time"
)

func TimeNowKST() time.Time {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return time.Now().In(loc)
}

func ToPointer[T any](v T) *T {
	return &v
}
