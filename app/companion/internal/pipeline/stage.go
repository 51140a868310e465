// Package pipeline 管理资助-上传-链上更新流程的会话状态
package pipeline

// Stage 更新流程所处阶段
type Stage int

const (
	StageIdle Stage = iota
	StageFundingPrepared
	StageFundingSubmitted
	StageFundingConfirmed
	StageMetadataUploaded
	StageUpdateTxBuilt
	StageUpdateTxSubmitted
	StageVerified
	StageFailed
)

var stageNames = map[Stage]string{
	StageIdle:              "Idle",
	StageFundingPrepared:   "FundingPrepared",
	StageFundingSubmitted:  "FundingSubmitted",
	StageFundingConfirmed:  "FundingConfirmed",
	StageMetadataUploaded:  "MetadataUploaded",
	StageUpdateTxBuilt:     "UpdateTxBuilt",
	StageUpdateTxSubmitted: "UpdateTxSubmitted",
	StageVerified:          "Verified",
	StageFailed:            "Failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal 是否为终态；失败态可被重试覆盖，不算终态
func (s Stage) Terminal() bool {
	return s == StageVerified
}
