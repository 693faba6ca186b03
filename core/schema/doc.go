/*
Package schema defines the declarative entity definitions a catalog is built from.

An entity is a named record type inside a namespace. Its fields are declared in
order and that order is the order records are serialized in.

# Entity Definition

A namespace with two entities in YAML:

	namespace: blog

	entities:
	  - entity: Category
	    display: name
	    ordering: [name]
	    fields:
	      name: string
	      slug: { type: string }

	  - entity: Post
	    display: title
	    ordering: [-created_at]
	    fields:
	      title:      string
	      author:     { type: ref, to: auth.User }
	      category:   { type: ref, to: Category, null: true }
	      tags:       { type: refs, to: Tag }
	      created_at: timestamp

# Field Types

Supported field types:

  - string:    Short text value
  - text:      Long text value
  - int:       Integer value
  - float:     Floating point value
  - bool:      Boolean value
  - timestamp: Date and time
  - date:      Calendar date
  - ref:       To-one reference to another entity (requires "to")
  - refs:      To-many reference to another entity (requires "to"), never serialized

# Implicit Fields

Entities without a primary_key field get an implicit integer "id" primary key.
*/
package schema
