package mashup

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// templateSchema constrains the shape of mashup template documents before
// they are unmarshaled into Template values.
const templateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["vendor", "name", "version", "tabs"],
  "properties": {
    "vendor": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "title": {"type": "string"},
    "preferences": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "params": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string", "enum": ["text", "password", "boolean", "number"]},
          "label": {"type": "string"},
          "required": {"type": "boolean"}
        }
      }
    },
    "tabs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "name": {"type": "string"},
          "title": {"type": "string", "minLength": 1},
          "preferences": {
            "type": "object",
            "additionalProperties": {"type": "string"}
          },
          "resources": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "vendor", "name", "version"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "vendor": {"type": "string", "minLength": 1},
                "name": {"type": "string", "minLength": 1},
                "version": {"type": "string", "minLength": 1},
                "title": {"type": "string"},
                "readonly": {"type": "boolean"},
                "screenSizes": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["id", "moreOrEqual", "lessOrEqual"],
                    "properties": {
                      "id": {"type": "integer", "minimum": 0},
                      "moreOrEqual": {"type": "integer", "minimum": 0},
                      "lessOrEqual": {"type": "integer", "minimum": -1}
                    }
                  }
                },
                "preferences": {"$ref": "#/definitions/valueMap"},
                "properties": {"$ref": "#/definitions/valueMap"}
              }
            }
          }
        }
      }
    },
    "wiring": {
      "type": "object",
      "properties": {
        "operators": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["name"],
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "preferences": {"$ref": "#/definitions/valueMap"}
            }
          }
        },
        "connections": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["source", "target"],
            "properties": {
              "readonly": {"type": "boolean"},
              "source": {"$ref": "#/definitions/endpoint"},
              "target": {"$ref": "#/definitions/endpoint"}
            }
          }
        },
        "visualdescription": {"type": "object"}
      }
    }
  },
  "definitions": {
    "valueMap": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "value": {"type": ["string", "null"]},
          "readonly": {"type": "boolean"},
          "hidden": {"type": "boolean"}
        }
      }
    },
    "endpoint": {
      "type": "object",
      "required": ["type", "id", "endpoint"],
      "properties": {
        "type": {"type": "string", "enum": ["widget", "operator"]},
        "id": {"type": "string", "minLength": 1},
        "endpoint": {"type": "string", "minLength": 1}
      }
    }
  }
}`

func validateDocument(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(templateSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(details, "; "))
}
