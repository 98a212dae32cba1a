// List item types found inside attribute namespaces: documents, messages, embeddings
// Items are validated structurally; mistyped fields degrade to empty values
package spanattr

// Document is one retrieved or reranked item.
type Document struct {
	ID       string         `json:"id,omitempty" yaml:"id,omitempty"`
	Content  string         `json:"content" yaml:"content"`
	Score    *float64       `json:"score,omitempty" yaml:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ToolCall is a named function invocation requested by an LLM.
type ToolCall struct {
	FunctionName  string `json:"functionName" yaml:"function_name"`
	ArgumentsJSON string `json:"arguments" yaml:"arguments"`
}

// Message is one LLM conversation turn.
type Message struct {
	Role      string     `json:"role" yaml:"role"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Content   string     `json:"content,omitempty" yaml:"content,omitempty"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty" yaml:"tool_calls,omitempty"`

	// Deprecated single function call, superseded by ToolCalls.
	FunctionCallName          string `json:"functionCallName,omitempty" yaml:"function_call_name,omitempty"`
	FunctionCallArgumentsJSON string `json:"functionCallArguments,omitempty" yaml:"function_call_arguments,omitempty"`
}

// HasFunctionCall reports whether both deprecated function call fields are set.
func (m Message) HasFunctionCall() bool {
	return m.FunctionCallName != "" && m.FunctionCallArgumentsJSON != ""
}

// Embedding is one embedded text, with its vector when recorded.
type Embedding struct {
	Text   string    `json:"text" yaml:"text"`
	Vector []float64 `json:"vector,omitempty" yaml:"vector,omitempty"`
}

// PromptTemplate is a validated llm.prompt_template object.
type PromptTemplate struct {
	Template  string         `json:"template" yaml:"template"`
	Variables map[string]any `json:"variables" yaml:"variables"`
	Version   string         `json:"version,omitempty" yaml:"version,omitempty"`
}

// objectItems returns the object elements of the list at key, skipping
// anything that is not an object.
func objectItems(obj AttributeObject, key string) []AttributeObject {
	l, ok := asList(obj[key])
	if !ok {
		return nil
	}
	items := make([]AttributeObject, 0, len(l))
	for _, v := range l {
		if o, ok := asObject(v); ok {
			items = append(items, o)
		}
	}
	return items
}

func documentsAt(obj AttributeObject, key string) []Document {
	items := objectItems(obj, key)
	docs := make([]Document, 0, len(items))
	for _, item := range items {
		docs = append(docs, documentFrom(item))
	}
	return docs
}

func documentFrom(item AttributeObject) Document {
	doc := Document{
		Content: stringField(item, DocumentContent),
	}
	switch id := item[DocumentID].(type) {
	case string:
		doc.ID = id
	case float64:
		doc.ID = FormatNumber(id)
	}
	if score, ok := asFloat(item[DocumentScore]); ok {
		doc.Score = &score
	}
	if md, ok := asObject(item[DocumentMetadata]); ok {
		doc.Metadata = md
	}
	return doc
}

func messagesAt(obj AttributeObject, key string) []Message {
	items := objectItems(obj, key)
	msgs := make([]Message, 0, len(items))
	for _, item := range items {
		msgs = append(msgs, messageFrom(item))
	}
	return msgs
}

func messageFrom(item AttributeObject) Message {
	msg := Message{
		Role:                      stringField(item, MessageRole),
		Name:                      stringField(item, MessageName),
		Content:                   stringField(item, MessageContent),
		FunctionCallName:          stringField(item, MessageFunctionCallName),
		FunctionCallArgumentsJSON: stringField(item, MessageFunctionCallArgumentsJSON),
	}
	for _, tc := range objectItems(item, MessageToolCalls) {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			FunctionName:  stringField(tc, ToolCallFunctionName),
			ArgumentsJSON: stringField(tc, ToolCallFunctionArgumentsJSON),
		})
	}
	return msg
}

func embeddingsAt(obj AttributeObject, key string) []Embedding {
	items := objectItems(obj, key)
	out := make([]Embedding, 0, len(items))
	for _, item := range items {
		e := Embedding{Text: stringField(item, EmbeddingText)}
		if l, ok := asList(item[EmbeddingVector]); ok {
			vec := make([]float64, 0, len(l))
			for _, v := range l {
				f, ok := asFloat(v)
				if !ok {
					vec = nil
					break
				}
				vec = append(vec, f)
			}
			e.Vector = vec
		}
		out = append(out, e)
	}
	return out
}

// promptTemplateFrom accepts the candidate only when it is an object with a
// string template and an object of variables.
func promptTemplateFrom(v any) *PromptTemplate {
	obj, ok := asObject(v)
	if !ok {
		return nil
	}
	tmpl, ok := asString(obj[PromptTemplateTemplate])
	if !ok {
		return nil
	}
	vars, ok := asObject(obj[PromptTemplateVariables])
	if !ok {
		return nil
	}
	return &PromptTemplate{
		Template:  tmpl,
		Variables: vars,
		Version:   stringField(obj, PromptTemplateVersion),
	}
}
