package kanon

import "testing"

func TestApplyMergesSmallBuckets(t *testing.T) {
	buckets, touched := Apply(map[string]int{
		"district-a": 10,
		"district-b": 3,
		"district-c": 4,
	}, 5)
	if !touched {
		t.Fatalf("expected suppression to be reported")
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %v", buckets)
	}
	if buckets[0].Value != "district-a" || buckets[0].Count != 10 {
		t.Fatalf("unexpected first bucket %+v", buckets[0])
	}
	if buckets[1].Value != OtherBucket || buckets[1].Count != 7 {
		t.Fatalf("small buckets should merge into other, got %+v", buckets[1])
	}
}

func TestApplyDropsOtherBelowThreshold(t *testing.T) {
	buckets, touched := Apply(map[string]int{
		"district-a": 10,
		"district-b": 3,
	}, 5)
	if !touched {
		t.Fatalf("expected suppression to be reported")
	}
	for _, bucket := range buckets {
		if bucket.Value == OtherBucket {
			t.Fatalf("other bucket below threshold must be dropped, got %+v", bucket)
		}
		if bucket.Count < 5 {
			t.Fatalf("released bucket below threshold: %+v", bucket)
		}
	}
}

func TestApplyNoSuppressionNeeded(t *testing.T) {
	buckets, touched := Apply(map[string]int{
		"district-a": 6,
		"district-b": 5,
	}, 5)
	if touched {
		t.Fatalf("nothing should be suppressed")
	}
	if len(buckets) != 2 {
		t.Fatalf("expected both buckets kept, got %v", buckets)
	}
}

func TestApplyFoldsPreexistingOther(t *testing.T) {
	buckets, _ := Apply(map[string]int{
		"other":      6,
		"district-a": 8,
	}, 5)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %v", buckets)
	}
	if buckets[1].Value != OtherBucket || buckets[1].Count != 6 {
		t.Fatalf("preexisting other should survive via the merge path, got %+v", buckets[1])
	}
}

func TestApplyIgnoresZeroCounts(t *testing.T) {
	buckets, touched := Apply(map[string]int{
		"district-a": 7,
		"district-b": 0,
	}, 5)
	if touched {
		t.Fatalf("zero-count buckets should not count as suppression")
	}
	if len(buckets) != 1 {
		t.Fatalf("expected only the non-empty bucket, got %v", buckets)
	}
}
