package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_passwatch() {
    local cur prev words cword
    _init_completion || return

    local commands="add list ls edit rm refreshed status export import diff passwd keyring compact help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        add)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-url -user -category -interval -notes -changed" -- "$cur"))
            fi
            ;;
        list|ls)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-q -status" -- "$cur"))
            fi
            ;;
        edit)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-name -url -user -category -interval -notes -changed" -- "$cur"))
            fi
            ;;
        import)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-replace" -- "$cur"))
            else
                _filedir
            fi
            ;;
        export|diff)
            _filedir
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save rm status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _passwatch passwatch
`

const zshCompletion = `#compdef passwatch

_passwatch() {
    local -a commands
    commands=(
        'add:Track a new account'
        'list:List tracked accounts'
        'ls:List tracked accounts'
        'edit:Edit an account'
        'rm:Remove an account'
        'refreshed:Mark a password as just changed'
        'status:Show store and rotation status'
        'export:Export accounts to a backup file'
        'import:Import accounts from a backup file'
        'diff:Compare a backup file with the store'
        'passwd:Change the store passphrase'
        'keyring:Manage the passphrase in the OS keyring'
        'compact:Compact the database file'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'passwatch commands' commands
            ;;
        args)
            case "${words[2]}" in
                add)
                    _arguments \
                        '-url[Account URL]:url:' \
                        '-user[Username or email]:user:' \
                        '-category[Account category]:category:(general financial email social shopping streaming work gaming)' \
                        '-interval[Rotation interval in days]:days:' \
                        '-notes[Free-form notes]:notes:' \
                        '-changed[Last password change]:when:'
                    ;;
                list|ls)
                    _arguments \
                        '-q[Search query]:query:' \
                        '-status[Status filter]:status:(overdue due_soon good)'
                    ;;
                edit)
                    _arguments \
                        '-name[Service name]:name:' \
                        '-url[Account URL]:url:' \
                        '-user[Username or email]:user:' \
                        '-category[Account category]:category:(general financial email social shopping streaming work gaming)' \
                        '-interval[Rotation interval in days]:days:' \
                        '-notes[Free-form notes]:notes:' \
                        '-changed[Last password change]:when:'
                    ;;
                import)
                    _arguments '-replace[Replace all existing accounts]' '*:file:_files'
                    ;;
                export|diff)
                    _arguments '*:file:_files'
                    ;;
                keyring)
                    _values 'subcommand' save rm status
                    ;;
                help)
                    _describe -t commands 'passwatch commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_passwatch "$@"
`

const fishCompletion = `# passwatch fish completions

set -l commands add list ls edit rm refreshed status export import diff passwd keyring compact help completion

complete -c passwatch -f

# Commands
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a add -d 'Track a new account'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a list -d 'List tracked accounts'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List tracked accounts'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a edit -d 'Edit an account'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove an account'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a refreshed -d 'Mark a password as changed'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show store status'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a export -d 'Export accounts to backup'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import accounts from backup'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare backup with store'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change store passphrase'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrase in OS keyring'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact the database'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c passwatch -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# list filters
complete -c passwatch -n "__fish_seen_subcommand_from list ls" -o q -d 'Search query'
complete -c passwatch -n "__fish_seen_subcommand_from list ls" -o status -d 'Status filter' -a "overdue due_soon good"

# import flags and files
complete -c passwatch -n "__fish_seen_subcommand_from import" -o replace -d 'Replace all existing accounts'
complete -c passwatch -n "__fish_seen_subcommand_from import export diff" -F

# keyring subcommands
complete -c passwatch -n "__fish_seen_subcommand_from keyring" -a "save rm status"

# help completions
complete -c passwatch -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c passwatch -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
