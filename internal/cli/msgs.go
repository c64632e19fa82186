package cli

// Command descriptions
const (
	MsgRootShort = "Deploy environments from git branches"
	MsgRootLong  = `envdeploy deploys one environment per branch of the configured source
repositories. Each environment declares its modules in a Deployfile;
modules come from git repositories, a module registry or the environment
itself. Content nobody declares anymore is purged, every deployed
environment gets a .r10k-deploy.json record, and a post-deploy hook runs
once per invocation.`

	MsgVersionShort = "Print version information"
	MsgVersionLong  = "Print detailed version information including commit hash and build date"

	MsgDeployShort = "Deploy environments and modules"

	MsgDeployEnvShort = "Deploy environments and their modules"
	MsgDeployEnvLong  = `Deploy the named environments, or every environment of every source when
no name is given. Names are matched after sanitization, so "feature/foo"
deploys the environment directory "feature_foo".

Environments that already exist only get their own checkout updated
unless --modules is given, which also syncs the modules of their
Deployfile.`
	MsgDeployEnvExample = `  # Deploy every environment
  envdeploy deploy environment

  # Deploy two environments and their modules
  envdeploy deploy environment production feature/login --modules

  # Keep local changes inside module checkouts
  envdeploy deploy environment production --modules --no-force`

	MsgDisplayShort = "List sources and their environments"
	MsgDisplayLong  = `Fetch every source and list the environments it provides, with the
state of their checkouts. Nothing outside the cache is modified.`

	MsgConfigShort         = "Inspect configuration"
	MsgConfigDefaultsShort = "Print the built-in default settings"
	MsgConfigShowShort     = "Print the resolved settings"

	MsgCompletionShort = "Generate shell completion script"
	MsgManShort        = "Generate man pages"
)

// Output formats
const (
	MsgVersionFormat = "envdeploy version %s\n"
	MsgCommitFormat  = "Commit: %s\n"
	MsgBuiltFormat   = "Built:  %s\n"

	MsgSettingsFile = "# settings file: %s\n"
)
