package players

import "slices"

// Leaderboard sorts views by descending score. Ties keep their input order,
// so passing a join-ordered slice breaks ties by join order. The input is
// not modified.
func Leaderboard(views []View) []View {
	board := slices.Clone(views)
	slices.SortStableFunc(board, func(a, b View) int {
		return b.Score - a.Score
	})
	return board
}
