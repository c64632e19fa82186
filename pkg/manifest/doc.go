// Package manifest reads an environment's Deployfile, the declaration of
// the modules the environment needs, and removes module directories that
// are no longer declared.
//
// A Deployfile is YAML or TOML:
//
//	moduledir: modules
//	modules:
//	  - name: puppetlabs/stdlib
//	    version: 9.4.1
//	  - name: apache
//	    git: https://git.example.com/apache.git
//	    ref: $control_branch
//	    default_branch: main
//	  - name: site
//	    local: true
//	    install_path: site-modules
package manifest
