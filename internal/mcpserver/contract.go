package mcpserver

// NotebookFormatContract describes the canonical notebook document
// format that LLM consumers should follow when creating notebooks.
const NotebookFormatContract = `# Laguz Notebook Format Contract

Every notebook document stored in Laguz MUST follow this structure.

## Structure

` + "```" + `json
{
  "metadata": {
    "kernel": "python3"
  },
  "cells": [
    {"kind": "markdown", "source": "# Title\n\nProse in Markdown."},
    {"kind": "code", "source": "print('hello')"},
    {"kind": "raw", "source": "passed through untouched"}
  ]
}
` + "```" + `

## Rules

1. **The document is a single JSON object** with an optional ` + "`" + `metadata` + "`" + ` map
   and a ` + "`" + `cells` + "`" + ` array. Cell order is the document order.
2. **` + "`" + `kind` + "`" + ` is required** on every cell and must be one of ` + "`" + `code` + "`" + `,
   ` + "`" + `markdown` + "`" + `, or ` + "`" + `raw` + "`" + `.
3. **` + "`" + `source` + "`" + ` is a single string.** Use ` + "`" + `\n` + "`" + ` for line breaks; do not
   split source into arrays.
4. **Only code cells carry outputs.** When creating a notebook, omit
   ` + "`" + `outputs` + "`" + `, ` + "`" + `execution_count` + "`" + `, and ` + "`" + `signature` + "`" + ` — they are produced by
   execution and signing, never authored by hand.
5. **The first markdown cell should start with a ` + "`" + `# ` + "`" + ` heading.** It becomes
   the notebook's title in listings and search.
6. **Set ` + "`" + `metadata.kernel` + "`" + `** to the language the code cells expect.
7. **File paths** end with ` + "`" + `.ipynb` + "`" + ` and use forward slashes. File and
   directory names MUST be in English (Latin characters).
8. **Encoding** is UTF-8.

## Example

` + "```" + `json
{
  "metadata": {"kernel": "python3"},
  "cells": [
    {"kind": "markdown", "source": "# Sales Analysis\n\nQuarterly numbers."},
    {"kind": "code", "source": "import pandas as pd\ndf = pd.read_csv('sales.csv')\ndf.head()"}
  ]
}
` + "```" + `
`
