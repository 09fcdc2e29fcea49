package testclips

import (
	"fmt"
	"log"
)

// verifyResults cross-checks resolved outcomes against the review queue.
// Results are indexed the same as clips.
func verifyResults(clips []Clip, results []JobResult, review []Entry, verbose bool) error {
	log.Println("verifying results...")

	if len(results) == 0 {
		return fmt.Errorf("no outcomes to verify")
	}

	if err := verifyReviewOrdering(review); err != nil {
		log.Printf("review ordering warning: %v", err)
	} else {
		log.Println("review ordering verified")
	}

	verifyKindSeparation(clips, results, verbose)

	log.Println("result verification completed")
	return nil
}

// verifyReviewOrdering checks the review queue is sorted by risk descending.
func verifyReviewOrdering(review []Entry) error {
	if len(review) == 0 {
		return fmt.Errorf("empty review queue")
	}

	for i := 1; i < len(review); i++ {
		if review[i].Score > review[i-1].Score {
			return fmt.Errorf("review queue not sorted: entry %d outranks entry %d", i, i-1)
		}
		if review[i].Rank < review[i-1].Rank {
			return fmt.Errorf("review ranks not ascending at entry %d", i)
		}
	}

	return nil
}

// verifyKindSeparation reports the mean risk score per clip kind. Vocoder
// clips should sit above natural ones; tone clips should mostly resolve as
// insufficient evidence.
func verifyKindSeparation(clips []Clip, results []JobResult, verbose bool) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	insufficient := make(map[string]int)

	for i, result := range results {
		if result.JobID == "" || result.Verdict == nil {
			continue
		}
		kind := clips[i].Kind
		sums[kind] += result.Verdict.AuthenticityScore
		counts[kind]++
		if result.Verdict.Label == "insufficient-evidence" {
			insufficient[kind]++
		}
	}

	for kind, count := range counts {
		mean := sums[kind] / float64(count)
		log.Printf("kind %-8s clips: %4d  mean risk: %.3f  insufficient: %d",
			kind, count, mean, insufficient[kind])
	}

	if counts[kindVocoder] > 0 && counts[kindNatural] > 0 {
		vocoderMean := sums[kindVocoder] / float64(counts[kindVocoder])
		naturalMean := sums[kindNatural] / float64(counts[kindNatural])
		if vocoderMean <= naturalMean {
			log.Printf("separation warning: vocoder mean %.3f not above natural mean %.3f",
				vocoderMean, naturalMean)
		} else {
			log.Printf("separation verified: vocoder %.3f > natural %.3f", vocoderMean, naturalMean)
		}
	}

	if verbose {
		for i, result := range results {
			if result.Verdict == nil {
				continue
			}
			log.Printf("clip %4d kind=%-8s score=%.3f label=%s",
				i, clips[i].Kind, result.Verdict.AuthenticityScore, result.Verdict.Label)
		}
	}
}
