// GraphQL documents for the Phoenix span queries
// Status and token fields differ per query, so they sit outside the shared fragment
package phoenix

const spanFields = `
fragment SpanFields on Span {
  context { spanId traceId }
  name
  spanKind
  statusMessage
  startTime
  parentId
  latencyMs
  input { value mimeType }
  output { value mimeType }
  attributes
  events { name message timestamp }
  spanEvaluations { name label score explanation }
  documentEvaluations { name label score explanation documentPosition }
  documentRetrievalMetrics { evaluationName ndcg precision hit }
}
`

// traceSpansPageSize is the number of spans requested per page of a trace.
const traceSpansPageSize = 1000

// Spans of one trace report their propagated status and their own token counts.
const traceQuery = `
query TraceSpans($projectId: GlobalID!, $traceId: ID!, $first: Int, $after: String) {
  node(id: $projectId) {
    ... on Project {
      trace(traceId: $traceId) {
        spans(first: $first, after: $after) {
          edges {
            span: node {
              ...SpanFields
              statusCode: propagatedStatusCode
              tokenCountTotal
              tokenCountPrompt
              tokenCountCompletion
            }
          }
          pageInfo { endCursor hasNextPage }
        }
      }
    }
  }
}
` + spanFields

// Root spans carry the propagated status and the token counts of their whole subtree.
const tracesQuery = `
query RootSpans($projectId: GlobalID!, $first: Int, $after: String, $sort: SpanSort, $filterCondition: String) {
  node(id: $projectId) {
    ... on Project {
      spans(first: $first, after: $after, sort: $sort, rootSpansOnly: true, filterCondition: $filterCondition) {
        edges {
          span: node {
            ...SpanFields
            statusCode: propagatedStatusCode
            tokenCountTotal: cumulativeTokenCountTotal
            tokenCountPrompt: cumulativeTokenCountPrompt
            tokenCountCompletion: cumulativeTokenCountCompletion
          }
        }
        pageInfo { endCursor hasNextPage }
      }
    }
  }
}
` + spanFields
