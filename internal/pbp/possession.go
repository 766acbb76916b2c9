package pbp

import "database/sql"

const stagePossession = "possession"

// ResolvePossession sets posteam, defteam and their next-row values.
//
// Rows start with the team that owned the drive at ingestion. In a drive
// that ends in a defensive touchdown every row up to and including the
// scoring row is reassigned to the defending side, so the drive resolves to
// the team that finished with the ball.
func ResolvePossession(rows []*Play) error {
	return forEachGame(stagePossession, rows, func(game []*Play) error {
		if err := requireIndexed(stagePossession, game); err != nil {
			return err
		}

		for _, p := range game {
			p.Posteam = validString(p.Raw.Team)
		}

		for start := 0; start < len(game); {
			end := start + 1
			for end < len(game) && game[end].DriveID == game[start].DriveID {
				end++
			}
			flipThrough := -1
			for i := start; i < end; i++ {
				if game[i].DefTouchdown == 1 {
					flipThrough = i
				}
			}
			for i := start; i <= flipThrough; i++ {
				game[i].Posteam = game[i].Opponent(game[i].Raw.Team)
			}
			start = end
		}

		for i, p := range game {
			p.Defteam = sql.NullString{}
			if p.Posteam.Valid {
				p.Defteam = p.Opponent(p.Posteam.String)
			}
			if p.Posteam.Valid && p.Defteam.Valid && p.Posteam.String == p.Defteam.String {
				return violation(stagePossession, p.GameID, "posteam equals defteam at play %d", p.PlayID)
			}
			if i > 0 {
				prev := game[i-1]
				prev.PosteamAfter = p.Posteam
				prev.DefteamAfter = p.Defteam
			}
		}
		last := game[len(game)-1]
		last.PosteamAfter = sql.NullString{}
		last.DefteamAfter = sql.NullString{}
		return nil
	})
}

// possessionChanged reports whether the ball belongs to another team on the
// next row of the game.
func possessionChanged(p *Play) bool {
	return p.Posteam.Valid && p.PosteamAfter.Valid && p.Posteam.String != p.PosteamAfter.String
}
