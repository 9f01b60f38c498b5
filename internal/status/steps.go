package status

// Step is one stage of the submission pipeline. The position of a step in
// Steps is its index in the status code.
type Step struct {
	Name        string
	Description string
}

const (
	StepSubStart      = "sub_start"
	StepOldCancel     = "old_cancel"
	StepDataDownload  = "data_download"
	StepDataTransfer  = "data_transfer"
	StepExtracting    = "extracting"
	StepCuration      = "curation"
	StepIngestSearch  = "ingest_search"
	StepIngestBackup  = "ingest_backup"
	StepIngestPublish = "ingest_publish"
	StepIngestCitrine = "ingest_citrine"
	StepIngestMRR     = "ingest_mrr"
	StepIngestCleanup = "ingest_cleanup"
)

var Steps = []Step{
	{StepSubStart, "Submission initialization"},
	{StepOldCancel, "Cancellation of previous submissions"},
	{StepDataDownload, "Connect data download"},
	{StepDataTransfer, "Data transfer to primary destination"},
	{StepExtracting, "Metadata extraction"},
	{StepCuration, "Dataset curation"},
	{StepIngestSearch, "MDF Search ingestion"},
	{StepIngestBackup, "Data transfer to secondary destinations"},
	{StepIngestPublish, "MDF Publish publication"},
	{StepIngestCitrine, "Citrine upload"},
	{StepIngestMRR, "Materials Resource Registration"},
	{StepIngestCleanup, "Post-processing cleanup"},
}

var stepIndex = func() map[string]int {
	m := make(map[string]int, len(Steps))
	for i, s := range Steps {
		m[s.Name] = i
	}

	return m
}()

// StepIndex returns the position of the named step.
func StepIndex(name string) (int, error) {
	i, ok := stepIndex[name]
	if !ok {
		return -1, NewUnknownStepError(name)
	}

	return i, nil
}
