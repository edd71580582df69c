package models

// Metadata keys attached to every indexed chunk.
const (
	MetaParentID    = "parent_id"
	MetaContentHash = "content_hash"
	MetaPosition    = "position"
	MetaSource      = "source"
	MetaTitle       = "title"
)

const (
	// RetrievalToolName is the function name the model calls to retrieve.
	RetrievalToolName = "retrieve_context"

	// RetrievalToolDescription tells the model what the tool does.
	RetrievalToolDescription = "Retrieve information from the note corpus to help answer a query."
)

var (
	// AgentSystemPrompt instructs the model when to reach for retrieval.
	AgentSystemPrompt = `You have access to a tool that retrieves information from a Second Brain stored in an Obsidian Vault. Use the tool to help answer user queries.`
)
