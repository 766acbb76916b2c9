package pbp

const stageIndex = "index"

// Index numbers sorted rows per game: play_id and play_id_half count rows
// from 1, drive_id starts at 1 and increments whenever the source drive of
// the half changes, and the last row of each half and of each game gets its
// boundary flag. Rows must already be in SortRaw order; running Index on its
// own output leaves the numbering unchanged. A source event that appears
// twice in a game is a violation.
func Index(rows []*Play) error {
	return forEachGame(stageIndex, rows, func(game []*Play) error {
		halves, err := halfSpans(stageIndex, game)
		if err != nil {
			return err
		}
		if err := requireUniqueEvents(game); err != nil {
			return err
		}

		driveID := 0
		for i, p := range game {
			if i == 0 || p.Half != game[i-1].Half || p.Raw.DriveIDHalf != game[i-1].Raw.DriveIDHalf {
				driveID++
			}
			p.PlayID = i + 1
			p.DriveID = driveID
			p.HalfEnd = 0
			p.GameEnd = 0
		}

		for _, h := range halves {
			for i, p := range game[h.start:h.end] {
				p.PlayIDHalf = i + 1
			}
			game[h.end-1].HalfEnd = 1
		}

		last := game[len(game)-1]
		last.HalfEnd = 1
		last.GameEnd = 1
		return nil
	})
}

type eventKey struct {
	half, drive, play int
}

func requireUniqueEvents(game []*Play) error {
	seen := make(map[eventKey]bool, len(game))
	for _, p := range game {
		k := eventKey{p.Half, p.Raw.DriveIDHalf, p.Raw.PlayIDDrive}
		if seen[k] {
			return violation(stageIndex, p.GameID, "duplicate event: half %d drive %d play %d", k.half, k.drive, k.play)
		}
		seen[k] = true
	}
	return nil
}
