package config

type WorkerKeyStruct struct {
	PersistAnswersQueue    string
	PersistScoresQueue     string
	PersistViolationsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:    "persist_answers_queue",
	PersistScoresQueue:     "persist_scores_queue",
	PersistViolationsQueue: "persist_violations_queue",
}
