// Package rules loads declarative disclosure tables from JSON or YAML
// documents:
//
//	forms:
//	  incident:
//	    marker: " *"
//	    rules:
//	      - trigger: was_person_injured
//	        dependents: [person_injured, injury_details]
//
// Each form id may be defined once across all files of a filesystem. The
// bundled defaults reproduce the incident, body map and appointment forms.
package rules
