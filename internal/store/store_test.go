package store

import "time"

var sampleTime = time.Date(2025, 5, 12, 10, 30, 0, 0, time.UTC)
