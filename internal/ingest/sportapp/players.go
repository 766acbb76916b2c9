package sportapp

import (
	"regexp"

	"github.com/fortuna/apollo/internal/pbp"
)

var (
	passerPattern      = regexp.MustCompile(`#(\d+)\s+(\w+\s\w+)\s+pass`)
	receiverPattern    = regexp.MustCompile(`pass complete to #(\d+)\s+(\w+\s\w+)`)
	rusherPattern      = regexp.MustCompile(`#(\d+)\s+(\w+\s\w+)\s+rush`)
	tacklerPattern     = regexp.MustCompile(`tackled by #(\d+)\s+(\w+\s\w+)`)
	interceptorPattern = regexp.MustCompile(`pass intercepted to #(\d+)\s+(\w+\s\w+)`)
	sackerPattern      = regexp.MustCompile(`sacked by #(\d+)\s+(\w+\s\w+)`)
)

// ExtractPlayers pulls the jersey numbers of the players named in a play
// summary. Roles that are not mentioned stay empty.
func ExtractPlayers(summary string) pbp.Players {
	return pbp.Players{
		Passer:      jersey(passerPattern, summary),
		Receiver:    jersey(receiverPattern, summary),
		Rusher:      jersey(rusherPattern, summary),
		Tackler:     jersey(tacklerPattern, summary),
		Interceptor: jersey(interceptorPattern, summary),
		Sacker:      jersey(sackerPattern, summary),
	}
}

func jersey(re *regexp.Regexp, summary string) string {
	m := re.FindStringSubmatch(summary)
	if m == nil {
		return ""
	}
	return m[1]
}
