package spanattr

// Namespace prefixes of the decoded attribute object.
const (
	PrefixLLM       = "llm"
	PrefixRetrieval = "retrieval"
	PrefixReranker  = "reranker"
	PrefixEmbedding = "embedding"
	PrefixTool      = "tool"
	PrefixMetadata  = "metadata"
)

// Postfixes under the llm namespace.
const (
	LLMModelName            = "model_name"
	LLMInputMessages        = "input_messages"
	LLMOutputMessages       = "output_messages"
	LLMPrompts              = "prompts"
	LLMPromptTemplate       = "prompt_template"
	LLMInvocationParameters = "invocation_parameters"
	LLMTokenCount           = "token_count"
)

// Postfixes of an llm.prompt_template object.
const (
	PromptTemplateTemplate  = "template"
	PromptTemplateVariables = "variables"
	PromptTemplateVersion   = "version"
)

// Postfixes under the retrieval namespace.
const (
	RetrievalDocuments = "documents"
)

// Postfixes under the reranker namespace.
const (
	RerankerQuery           = "query"
	RerankerInputDocuments  = "input_documents"
	RerankerOutputDocuments = "output_documents"
	RerankerModelName       = "model_name"
	RerankerTopK            = "top_k"
)

// Postfixes under the embedding namespace.
const (
	EmbeddingEmbeddings = "embeddings"
	EmbeddingModelName  = "model_name"
)

// Postfixes under the tool namespace.
const (
	ToolName        = "name"
	ToolDescription = "description"
	ToolParameters  = "parameters"
)

// Fully qualified keys used inside list items.
const (
	DocumentID       = "document.id"
	DocumentContent  = "document.content"
	DocumentScore    = "document.score"
	DocumentMetadata = "document.metadata"

	MessageRole                      = "message.role"
	MessageName                      = "message.name"
	MessageContent                   = "message.content"
	MessageToolCalls                 = "message.tool_calls"
	MessageFunctionCallName          = "message.function_call_name"
	MessageFunctionCallArgumentsJSON = "message.function_call_arguments_json"

	ToolCallFunctionName          = "tool_call.function.name"
	ToolCallFunctionArgumentsJSON = "tool_call.function.arguments"

	EmbeddingText   = "embedding.text"
	EmbeddingVector = "embedding.vector"
)

// emptyObjectLiteral is the default for JSON-string fields holding objects.
const emptyObjectLiteral = "{}"
