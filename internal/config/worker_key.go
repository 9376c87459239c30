package config

type WorkerKeyStruct struct {
	PersistAnswerEventsQueue string
	PersistResultsQueue      string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswerEventsQueue: "persist_answer_events_queue",
	PersistResultsQueue:      "persist_results_queue",
}
