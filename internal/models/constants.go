package models

const (
	// RefusalAnswer is returned verbatim whenever retrieval yields no
	// context, and the model is instructed to emit it when the supplied
	// context is insufficient.
	RefusalAnswer = "I cannot answer this based on the provided study materials."

	// Metadata keys persisted with every embedding record.
	MetaFilename   = "filename"
	MetaPageNumber = "page_number"
	MetaSourceURL  = "source_url"
)

var (
	SystemPrompt = `You are a Bible study assistant. Answer the user's question using only the provided context excerpts. If the context does not contain the answer, reply with "` + RefusalAnswer + `" Keep answers concise and factual.`

	QuestionPromptTemplate = `Question: %s

Context:
%s`
)
