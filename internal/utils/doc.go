// Package utils exposes helpers shared by every gx command.
//
// ConfigurationLoader layers embedded defaults, configuration files and GX_
// environment variables through Viper. LoggerFactory builds zap loggers in
// structured or console encodings. CommandContextAccessor carries resolved
// execution settings from the root command to its subcommands.
package utils
