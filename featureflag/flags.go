package featureflag

type Flag string

const (
	FlagDisableRetrievalDedup Flag = "DISABLE_RETRIEVAL_DEDUP"
	FlagDisableFrameRebuild   Flag = "DISABLE_FRAME_REBUILD"
	FlagCompareStrictFit      Flag = "COMPARE_STRICT_FIT"
)
