// Package ranking scores a corpus of breakdowns against a query in parallel.
//
// A Ranker owns an ants worker pool and submits one task per corpus record.
// Each task scores its record independently and reports exactly one outcome,
// either a SimilarityResult or a ScoreError. Outcomes are collected in
// completion order and sorted once by total score descending, breaking ties
// by layout code and then layout id so repeated runs produce the same order.
//
// A record that cannot be scored is skipped and reported in Ranking.Skipped.
// Cancelling the context aborts the whole ranking and returns no results.
package ranking
