package redis

import "fmt"

const statsVersionKey = "stats:version"

func statsWindowKey(version int64, days int) string {
	return fmt.Sprintf("stats:window:v%d:%d", version, days)
}
